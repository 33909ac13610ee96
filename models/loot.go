// models/loot.go
package models

import "time"

const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// LootSession is the channel-scoped unit of work for group loot splitting.
// The partial unique index on channel_id enforces at most one open session per
// channel at the store, so concurrent starts race on the constraint instead of
// in-process state. Split totals are persisted on close for the audit trail.
type LootSession struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	GuildID   string `gorm:"size:32;index;not null" json:"guild_id"`
	ChannelID string `gorm:"size:32;not null;uniqueIndex:uix_loot_open_channel,where:status = 'open'" json:"channel_id"`
	CreatorID string `gorm:"size:32;not null" json:"creator_id"`
	Status    string `gorm:"size:16;not null;default:open" json:"status"`

	// Filled in by Split; zero on cancelled sessions.
	TotalValue int64 `json:"total_value"`
	PerShare   int64 `json:"per_share"`
	Remainder  int64 `json:"remainder"`

	ClosedAt *time.Time `json:"closed_at,omitempty"`

	Timestamps
}

// LootItem is immutable once created and owned by exactly one session.
type LootItem struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID string `gorm:"type:uuid;index;not null" json:"session_id"`
	Name      string `gorm:"size:128;not null" json:"name"`
	Quantity  uint32 `gorm:"not null" json:"quantity"`
	Value     int64  `gorm:"not null" json:"value"`
	AddedBy   string `gorm:"size:32;not null" json:"added_by"`

	Timestamps
}

// SessionParticipant joins a user to a session. The composite primary key
// makes re-joining a no-op rather than a duplicate.
type SessionParticipant struct {
	SessionID string    `gorm:"primaryKey;type:uuid" json:"session_id"`
	UserID    string    `gorm:"primaryKey;size:32" json:"user_id"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// LootRecord is the per-participant history row written when a session splits.
type LootRecord struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID string `gorm:"type:uuid;index;not null" json:"session_id"`
	GuildID   string `gorm:"size:32;index;not null" json:"guild_id"`
	ChannelID string `gorm:"size:32;not null" json:"channel_id"`
	UserID    string `gorm:"size:32;index;not null" json:"user_id"`

	Share      int64 `json:"share"`
	TotalValue int64 `json:"total_value"`
	ItemCount  int   `json:"item_count"`

	Timestamps
}
