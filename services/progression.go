package services

import (
	"context"
	"fmt"
	"time"

	"guild-bot-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XP configuration (values match the bot's long-standing tuning).
const (
	XPLevelStep = 50
	XPLevelBase = 50

	XPCooldown = 60 * time.Second

	MessageXPMin = 15
	MessageXPMax = 25

	// Coins credited by the caller when a grant crosses a level boundary.
	LevelUpCoinBonus = 100
)

// MilestoneRoles maps milestone levels to the community role granted for them.
// Role assignment itself is the gateway's job; the engine only reports the name.
var MilestoneRoles = map[uint32]string{
	5:  "Active",
	10: "Veteran",
	20: "Legend",
	50: "God",
}

// XPForLevel returns the total XP required to reach a level. Both the level
// recompute and the next-level preview go through this single function so they
// can never disagree.
func XPForLevel(level uint32) uint64 {
	if level < 1 {
		level = 1
	}
	return uint64(level)*XPLevelStep + XPLevelBase
}

// LevelFromXP is the largest level L >= 1 with XPForLevel(L) <= xp, scanned
// upward; below the first threshold it floors at 1.
func LevelFromXP(xp uint64) uint32 {
	level := uint32(1)
	for XPForLevel(level+1) <= xp {
		level++
	}
	return level
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// GrantResult reports what a grant did so the caller can compose follow-ups
// (level-up bonus, milestone role) without the engine reaching into other
// subsystems.
type GrantResult struct {
	Applied       bool   `json:"applied"`
	XP            uint64 `json:"xp"`
	Level         uint32 `json:"level"`
	MessageCount  uint64 `json:"message_count"`
	LeveledUp     bool   `json:"leveled_up"`
	MilestoneRole string `json:"milestone_role,omitempty"`
}

// GrantXP applies a cooldown-gated XP grant as a single conditional upsert.
// A grant inside the cooldown window is a silent no-op (Applied=false), not an
// error. The grant and the level recompute commit together, so a stored level
// never lags its XP total.
func (s *ProgressionService) GrantXP(ctx context.Context, userID, guildID string, amount uint64) (*GrantResult, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-XPCooldown)

	var result *GrantResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.UserProgression{
			UserID:        userID,
			GuildID:       guildID,
			XP:            amount,
			Level:         1,
			MessageCount:  1,
			LastXPGrantAt: &now,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"xp":               gorm.Expr("xp + ?", amount),
				"message_count":    gorm.Expr("message_count + 1"),
				"last_xp_grant_at": now,
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("last_xp_grant_at IS NULL OR last_xp_grant_at <= ?", cutoff),
			}},
		}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("grant xp: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Still cooling down.
			result = &GrantResult{Applied: false}
			return nil
		}

		var prog models.UserProgression
		if err := tx.Where("user_id = ? AND guild_id = ?", userID, guildID).
			First(&prog).Error; err != nil {
			return fmt.Errorf("reload progression: %w", err)
		}

		result = &GrantResult{
			Applied:      true,
			XP:           prog.XP,
			Level:        prog.Level,
			MessageCount: prog.MessageCount,
		}

		newLevel := LevelFromXP(prog.XP)
		if newLevel > prog.Level {
			// Guarded so racing grants can only move the level forward.
			if err := tx.Model(&models.UserProgression{}).
				Where("user_id = ? AND guild_id = ? AND level < ?", userID, guildID, newLevel).
				Update("level", newLevel).Error; err != nil {
				return fmt.Errorf("update level: %w", err)
			}
			result.Level = newLevel
			result.LeveledUp = true
			result.MilestoneRole = MilestoneRoles[newLevel]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns a user's progression row, or gorm.ErrRecordNotFound if the user
// has never been granted XP in the guild.
func (s *ProgressionService) Get(ctx context.Context, userID, guildID string) (*models.UserProgression, error) {
	var prog models.UserProgression
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		First(&prog).Error; err != nil {
		return nil, err
	}
	return &prog, nil
}

// TopByXP returns the guild's XP leaderboard, highest first.
func (s *ProgressionService) TopByXP(ctx context.Context, guildID string, limit int) ([]models.UserProgression, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	var rows []models.UserProgression
	err := s.DB.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("xp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SetXP is the admin override. It never lowers XP (the ledger is monotonic) and
// writes level together with XP so the derived-state invariant holds in the
// same statement.
func (s *ProgressionService) SetXP(ctx context.Context, userID, guildID string, target uint64) (*models.UserProgression, error) {
	level := LevelFromXP(target)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
			DoNothing: true,
		}).Create(&models.UserProgression{UserID: userID, GuildID: guildID, Level: 1}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.UserProgression{}).
			Where("user_id = ? AND guild_id = ? AND xp <= ?", userID, guildID, target).
			Updates(map[string]interface{}{"xp": target, "level": level})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidAmount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, guildID)
}
