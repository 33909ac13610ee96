// services/loot.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guild-bot-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LootService struct {
	DB *gorm.DB
}

func NewLootService(db *gorm.DB) *LootService {
	return &LootService{DB: db}
}

// activeSession loads the open session for a channel, or ErrNoActiveSession.
func (s *LootService) activeSession(tx *gorm.DB, channelID string) (*models.LootSession, error) {
	var session models.LootSession
	err := tx.Where("channel_id = ? AND status = ?", channelID, models.SessionOpen).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Start opens a new session in the channel and auto-joins the creator. The
// partial unique index on open sessions decides races: the loser of two
// concurrent starts sees ErrSessionAlreadyActive.
func (s *LootService) Start(ctx context.Context, guildID, channelID, creatorID string) (*models.LootSession, error) {
	session := &models.LootSession{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		ChannelID: channelID,
		CreatorID: creatorID,
		Status:    models.SessionOpen,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		return tx.Create(&models.SessionParticipant{
			SessionID: session.ID,
			UserID:    creatorID,
		}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrSessionAlreadyActive
	}
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return session, nil
}

// Join adds a user to the channel's open session. Re-joining is a no-op, not
// an error. Returns the session and the participant count after the join.
func (s *LootService) Join(ctx context.Context, channelID, userID string) (*models.LootSession, int64, error) {
	var session *models.LootSession
	var count int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		session, err = s.activeSession(tx, channelID)
		if err != nil {
			return err
		}
		// The insert re-checks the session status so a close committing
		// between the read above and this statement cannot leave a
		// participant row on a closed session.
		res := tx.Exec(
			"INSERT INTO session_participants (session_id, user_id, joined_at) "+
				"SELECT ?, ?, ? WHERE EXISTS "+
				"(SELECT 1 FROM loot_sessions WHERE id = ? AND status = ?) "+
				"ON CONFLICT DO NOTHING",
			session.ID, userID, time.Now().UTC(), session.ID, models.SessionOpen)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Either the user had already joined or the session just closed.
			var joined int64
			if err := tx.Model(&models.SessionParticipant{}).
				Where("session_id = ? AND user_id = ?", session.ID, userID).
				Count(&joined).Error; err != nil {
				return err
			}
			if joined == 0 {
				return ErrNoActiveSession
			}
		}
		return tx.Model(&models.SessionParticipant{}).
			Where("session_id = ?", session.ID).
			Count(&count).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return session, count, nil
}

// AddItem records an immutable loot item on the channel's open session and
// returns the running total.
func (s *LootService) AddItem(ctx context.Context, channelID, name string, quantity uint32, value int64, addedBy string) (*models.LootItem, int64, error) {
	if quantity == 0 || value <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	var item *models.LootItem
	var total int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.activeSession(tx, channelID)
		if err != nil {
			return err
		}
		item = &models.LootItem{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Name:      name,
			Quantity:  quantity,
			Value:     value,
			AddedBy:   addedBy,
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return tx.Model(&models.LootItem{}).
			Where("session_id = ?", session.ID).
			Select("COALESCE(SUM(value), 0)").
			Scan(&total).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return item, total, nil
}

// SplitResult is what the presentation layer renders after a split. The
// remainder of the integer division is reported, never silently dropped.
type SplitResult struct {
	Session      *models.LootSession `json:"session"`
	Items        []models.LootItem   `json:"items"`
	Participants []string            `json:"participants"`
	Total        int64               `json:"total"`
	PerShare     int64               `json:"per_share"`
	Remainder    int64               `json:"remainder"`
}

// Split computes the even payout, closes the session and writes one history
// record per participant. A session without items or participants is left
// open and the caller told why. Close is a conditional update, so only one of
// Split/Cancel can ever win.
func (s *LootService) Split(ctx context.Context, channelID string) (*SplitResult, error) {
	var result *SplitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.activeSession(tx, channelID)
		if err != nil {
			return err
		}

		var items []models.LootItem
		if err := tx.Where("session_id = ?", session.ID).
			Order("created_at ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrNothingToSplit
		}

		var participants []models.SessionParticipant
		if err := tx.Where("session_id = ?", session.ID).
			Order("joined_at ASC").Find(&participants).Error; err != nil {
			return err
		}
		if len(participants) == 0 {
			return ErrNoParticipants
		}

		var total int64
		for _, it := range items {
			total += it.Value
		}
		perShare := total / int64(len(participants))
		remainder := total - perShare*int64(len(participants))

		now := time.Now().UTC()
		res := tx.Model(&models.LootSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionOpen).
			Updates(map[string]interface{}{
				"status":      models.SessionClosed,
				"closed_at":   now,
				"total_value": total,
				"per_share":   perShare,
				"remainder":   remainder,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the close race to a concurrent split or cancel.
			return ErrNoActiveSession
		}

		userIDs := make([]string, 0, len(participants))
		records := make([]models.LootRecord, 0, len(participants))
		for _, p := range participants {
			userIDs = append(userIDs, p.UserID)
			records = append(records, models.LootRecord{
				ID:         uuid.NewString(),
				SessionID:  session.ID,
				GuildID:    session.GuildID,
				ChannelID:  session.ChannelID,
				UserID:     p.UserID,
				Share:      perShare,
				TotalValue: total,
				ItemCount:  len(items),
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return err
		}

		session.Status = models.SessionClosed
		session.ClosedAt = &now
		session.TotalValue = total
		session.PerShare = perShare
		session.Remainder = remainder
		result = &SplitResult{
			Session:      session,
			Items:        items,
			Participants: userIDs,
			Total:        total,
			PerShare:     perShare,
			Remainder:    remainder,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel closes the session without a payout. Only the creator or a moderator
// may cancel.
func (s *LootService) Cancel(ctx context.Context, channelID, byUserID string, moderator bool) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.activeSession(tx, channelID)
		if err != nil {
			return err
		}
		if byUserID != session.CreatorID && !moderator {
			return ErrForbidden
		}
		now := time.Now().UTC()
		res := tx.Model(&models.LootSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionOpen).
			Updates(map[string]interface{}{
				"status":    models.SessionClosed,
				"closed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoActiveSession
		}
		return nil
	})
}

// SessionInfo is a read-only snapshot of the channel's open session, including
// the payout preview a split would produce right now.
type SessionInfo struct {
	Session          *models.LootSession `json:"session"`
	ItemCount        int64               `json:"item_count"`
	ParticipantCount int64               `json:"participant_count"`
	Total            int64               `json:"total"`
	PerShare         int64               `json:"per_share"`
	Remainder        int64               `json:"remainder"`
}

// Info returns the current open session snapshot, or ErrNoActiveSession.
func (s *LootService) Info(ctx context.Context, channelID string) (*SessionInfo, error) {
	var info *SessionInfo
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.activeSession(tx, channelID)
		if err != nil {
			return err
		}
		var itemCount, participantCount, total int64
		if err := tx.Model(&models.LootItem{}).
			Where("session_id = ?", session.ID).Count(&itemCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.LootItem{}).
			Where("session_id = ?", session.ID).
			Select("COALESCE(SUM(value), 0)").Scan(&total).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.SessionParticipant{}).
			Where("session_id = ?", session.ID).Count(&participantCount).Error; err != nil {
			return err
		}
		info = &SessionInfo{
			Session:          session,
			ItemCount:        itemCount,
			ParticipantCount: participantCount,
			Total:            total,
		}
		if participantCount > 0 {
			info.PerShare = total / participantCount
			info.Remainder = total - info.PerShare*participantCount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// History returns a user's most recent loot payouts in the guild.
func (s *LootService) History(ctx context.Context, userID, guildID string, limit int) ([]models.LootRecord, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	var records []models.LootRecord
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
