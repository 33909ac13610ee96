// models/economy.go
package models

import "time"

// EconomyAccount holds a user's coin balance within one guild.
// The row is created lazily on the first credit or claim; absence means a
// balance of zero. Balance must never go negative; debits are conditional
// single-statement updates.
type EconomyAccount struct {
	UserID  string `gorm:"primaryKey;size:32" json:"user_id"`
	GuildID string `gorm:"primaryKey;size:32" json:"guild_id"`

	Balance int64 `json:"balance" gorm:"default:0"`

	LastDailyClaimAt *time.Time `json:"last_daily_claim_at,omitempty"`
	LastWorkClaimAt  *time.Time `json:"last_work_claim_at,omitempty"`

	Timestamps
}
