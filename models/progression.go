package models

import "time"

// UserProgression tracks per-guild XP state for a user (one row per user+guild).
// Level is derived from XP through the progression curve and must stay in sync
// after every grant.
type UserProgression struct {
	UserID  string `gorm:"primaryKey;size:32" json:"user_id"`
	GuildID string `gorm:"primaryKey;size:32" json:"guild_id"`

	XP           uint64 `json:"xp" gorm:"default:0"`
	Level        uint32 `json:"level" gorm:"default:1"`
	MessageCount uint64 `json:"message_count" gorm:"default:0"`

	// Last time an XP grant was applied; the cooldown gate compares against it.
	LastXPGrantAt *time.Time `json:"last_xp_grant_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
