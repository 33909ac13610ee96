// services/economy.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"guild-bot-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reward tuning (same values the community has run with for years).
const (
	DailyReward   = 100
	DailyCooldown = 24 * time.Hour

	WorkRewardMin = 50
	WorkRewardMax = 150
	WorkCooldown  = time.Hour
)

// Coin-flip sides accepted by Wager.
const (
	FlipHeads = "heads"
	FlipTails = "tails"
)

type EconomyService struct {
	DB *gorm.DB

	// Swappable randomness so tests can pin outcomes.
	flip     func() string
	workRoll func() int64
}

func NewEconomyService(db *gorm.DB) *EconomyService {
	return &EconomyService{
		DB: db,
		flip: func() string {
			if rand.Intn(2) == 0 {
				return FlipHeads
			}
			return FlipTails
		},
		workRoll: func() int64 {
			return WorkRewardMin + rand.Int63n(WorkRewardMax-WorkRewardMin+1)
		},
	}
}

// Balance returns the user's balance, defaulting to 0 when no account row
// exists yet.
func (s *EconomyService) Balance(ctx context.Context, userID, guildID string) (int64, error) {
	var acct models.EconomyAccount
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Credit adds coins via an atomic upsert-increment, creating the account row
// if it does not exist.
func (s *EconomyService) Credit(ctx context.Context, userID, guildID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	row := models.EconomyAccount{UserID: userID, GuildID: guildID, Balance: amount}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
		}),
	}).Create(&row).Error
	if err != nil {
		return 0, fmt.Errorf("credit: %w", err)
	}
	return s.Balance(ctx, userID, guildID)
}

// Debit removes coins in one conditional statement; the balance check and the
// decrement cannot be separated, so racing debits can never overdraw.
func (s *EconomyService) Debit(ctx context.Context, userID, guildID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	res := s.DB.WithContext(ctx).Model(&models.EconomyAccount{}).
		Where("user_id = ? AND guild_id = ? AND balance >= ?", userID, guildID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return 0, fmt.Errorf("debit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Missing row counts as a zero balance.
		return 0, ErrInsufficientFunds
	}
	return s.Balance(ctx, userID, guildID)
}

// ClaimResult reports a successful timed claim.
type ClaimResult struct {
	Amount     int64 `json:"amount"`
	NewBalance int64 `json:"new_balance"`
}

// ClaimDaily credits the fixed daily reward. The credit and the claim
// timestamp are one upsert, so a retried claim can never double-pay.
func (s *EconomyService) ClaimDaily(ctx context.Context, userID, guildID string) (*ClaimResult, error) {
	return s.claim(ctx, userID, guildID, "daily", "last_daily_claim_at", DailyCooldown, DailyReward)
}

// ClaimWork credits a randomized work reward on its own cooldown.
func (s *EconomyService) ClaimWork(ctx context.Context, userID, guildID string) (*ClaimResult, error) {
	return s.claim(ctx, userID, guildID, "work", "last_work_claim_at", WorkCooldown, s.workRoll())
}

func (s *EconomyService) claim(ctx context.Context, userID, guildID, name, column string, cooldown time.Duration, reward int64) (*ClaimResult, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-cooldown)

	row := models.EconomyAccount{UserID: userID, GuildID: guildID, Balance: reward}
	switch column {
	case "last_daily_claim_at":
		row.LastDailyClaimAt = &now
	case "last_work_claim_at":
		row.LastWorkClaimAt = &now
	}

	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", reward),
			column:    now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr(column+" IS NULL OR "+column+" <= ?", cutoff),
		}},
	}).Create(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("%s claim: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.cooldownError(ctx, userID, guildID, name, column, cooldown, now)
	}

	balance, err := s.Balance(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	return &ClaimResult{Amount: reward, NewBalance: balance}, nil
}

func (s *EconomyService) cooldownError(ctx context.Context, userID, guildID, name, column string, cooldown time.Duration, now time.Time) error {
	var acct models.EconomyAccount
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND guild_id = ?", userID, guildID).
		First(&acct).Error; err != nil {
		return fmt.Errorf("%s claim: %w", name, err)
	}
	var last *time.Time
	switch column {
	case "last_daily_claim_at":
		last = acct.LastDailyClaimAt
	case "last_work_claim_at":
		last = acct.LastWorkClaimAt
	}
	remaining := cooldown
	if last != nil {
		remaining = cooldown - now.Sub(*last)
		if remaining < 0 {
			remaining = 0
		}
	}
	return &ClaimCooldownError{Claim: name, Remaining: remaining}
}

// Transfer moves coins between two users in the same guild. The debit runs
// first inside one transaction; the credit is never attempted when the debit
// fails.
func (s *EconomyService) Transfer(ctx context.Context, guildID, fromID, toID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if fromID == toID {
		return 0, ErrInvalidAmount
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.EconomyAccount{}).
			Where("user_id = ? AND guild_id = ? AND balance >= ?", fromID, guildID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		row := models.EconomyAccount{UserID: toID, GuildID: guildID, Balance: amount}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "guild_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance": gorm.Expr("balance + ?", amount),
			}),
		}).Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("transfer: %w", err)
	}
	return s.Balance(ctx, fromID, guildID)
}

// WagerResult reports the resolved coin flip.
type WagerResult struct {
	Outcome    string `json:"outcome"`
	Won        bool   `json:"won"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
}

// Wager resolves a coin flip. The stake is not pre-debited: a win credits it,
// a loss debits it through the ordinary guarded debit, so a losing wager
// against a drained balance fails with InsufficientFunds and applies nothing.
func (s *EconomyService) Wager(ctx context.Context, userID, guildID, guess string, stake int64) (*WagerResult, error) {
	if stake <= 0 {
		return nil, ErrInvalidAmount
	}
	if guess != FlipHeads && guess != FlipTails {
		return nil, ErrInvalidAmount
	}

	outcome := s.flip()
	result := &WagerResult{Outcome: outcome, Won: outcome == guess, Amount: stake}

	var err error
	if result.Won {
		result.NewBalance, err = s.Credit(ctx, userID, guildID, stake)
	} else {
		result.NewBalance, err = s.Debit(ctx, userID, guildID, stake)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetBalance is the admin override. It computes the signed delta and applies
// it through Credit/Debit so the normal guards stay in the path; it never
// writes the absolute value directly.
func (s *EconomyService) SetBalance(ctx context.Context, userID, guildID string, target int64) (int64, error) {
	if target < 0 {
		return 0, ErrInvalidAmount
	}
	current, err := s.Balance(ctx, userID, guildID)
	if err != nil {
		return 0, err
	}
	switch {
	case target > current:
		return s.Credit(ctx, userID, guildID, target-current)
	case target < current:
		return s.Debit(ctx, userID, guildID, current-target)
	default:
		return current, nil
	}
}

// TopByBalance returns the guild's richest users, highest first.
func (s *EconomyService) TopByBalance(ctx context.Context, guildID string, limit int) ([]models.EconomyAccount, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	var rows []models.EconomyAccount
	err := s.DB.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("balance DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
