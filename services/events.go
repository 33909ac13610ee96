// services/events.go
package services

import (
	"context"
	"fmt"
	"time"

	"guild-bot-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// NotifyWindow is how long before an event its reminder becomes due.
const NotifyWindow = time.Hour

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

// Create stores a new scheduled event. The event time must be in the future.
func (s *EventService) Create(ctx context.Context, guildID, creatorID, title, description string, eventAt time.Time) (*models.ScheduledEvent, error) {
	if !eventAt.After(time.Now()) {
		return nil, ErrInvalidEventTime
	}
	event := &models.ScheduledEvent{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		CreatorID:   creatorID,
		Title:       title,
		Slug:        slug.Make(title),
		Description: description,
		EventAt:     eventAt.UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// Upcoming lists the guild's future events, soonest first.
func (s *EventService) Upcoming(ctx context.Context, guildID string) ([]models.ScheduledEvent, error) {
	var events []models.ScheduledEvent
	err := s.DB.WithContext(ctx).
		Where("guild_id = ? AND event_at > ?", guildID, time.Now().UTC()).
		Order("event_at ASC").
		Find(&events).Error
	return events, err
}

// DueForNotification returns unnotified events whose start falls inside
// (now, now+NotifyWindow]. Events already underway are never reminded.
func (s *EventService) DueForNotification(ctx context.Context, now time.Time) ([]models.ScheduledEvent, error) {
	now = now.UTC()
	var events []models.ScheduledEvent
	err := s.DB.WithContext(ctx).
		Where("notified = ? AND event_at > ? AND event_at <= ?", false, now, now.Add(NotifyWindow)).
		Order("event_at ASC").
		Find(&events).Error
	return events, err
}

// MarkNotified flips the notified flag exactly once. Returns false when some
// other tick already claimed the event; the caller must not deliver again.
func (s *EventService) MarkNotified(ctx context.Context, eventID string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.ScheduledEvent{}).
		Where("id = ? AND notified = ?", eventID, false).
		Update("notified", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark notified: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
