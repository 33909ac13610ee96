// models/event.go
package models

import "time"

// ScheduledEvent is a community event announced once inside the hour before it
// starts. Rows are immutable after creation except for the notified flag,
// which transitions false -> true exactly once.
type ScheduledEvent struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	GuildID   string `gorm:"size:32;index;not null" json:"guild_id"`
	CreatorID string `gorm:"size:32;not null" json:"creator_id"`

	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:220;index" json:"slug"`
	Description string `gorm:"size:2000" json:"description"`

	EventAt  time.Time `gorm:"index;not null" json:"event_at"`
	Notified bool      `gorm:"not null;default:false" json:"notified"`

	Timestamps
}
