package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"guild-bot-system/models"

	"github.com/stretchr/testify/require"
)

func TestCreditDebit(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	ctx := context.Background()

	// Missing account reads as zero.
	bal, err := svc.Balance(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 0, bal)

	bal, err = svc.Credit(ctx, "u1", "g1", 100)
	require.NoError(t, err)
	require.EqualValues(t, 100, bal)

	bal, err = svc.Debit(ctx, "u1", "g1", 40)
	require.NoError(t, err)
	require.EqualValues(t, 60, bal)

	_, err = svc.Debit(ctx, "u1", "g1", 100)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err = svc.Balance(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 60, bal)

	// Debiting a user with no account fails the same way.
	_, err = svc.Debit(ctx, "nobody", "g1", 1)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = svc.Credit(ctx, "u1", "g1", 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Debit(ctx, "u1", "g1", -5)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "u1", "g1", 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Debit(ctx, "u1", "g1", 30); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, successes)
	bal, err := svc.Balance(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 100-30*3, bal)
}

func TestClaimDaily(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	ctx := context.Background()

	res, err := svc.ClaimDaily(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, DailyReward, res.Amount)
	require.EqualValues(t, DailyReward, res.NewBalance)

	// Second claim inside the window pays nothing and reports the wait.
	_, err = svc.ClaimDaily(ctx, "u1", "g1")
	var cooldown *ClaimCooldownError
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, "daily", cooldown.Claim)
	require.Greater(t, cooldown.Remaining, time.Duration(0))

	bal, err := svc.Balance(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, DailyReward, bal)

	// Once the window has passed the claim pays again.
	stale := time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, db.Model(&models.EconomyAccount{}).
		Where("user_id = ? AND guild_id = ?", "u1", "g1").
		Update("last_daily_claim_at", stale).Error)

	res, err = svc.ClaimDaily(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 2*DailyReward, res.NewBalance)
}

func TestClaimWork(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	svc.workRoll = func() int64 { return 75 }
	ctx := context.Background()

	res, err := svc.ClaimWork(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 75, res.Amount)
	require.EqualValues(t, 75, res.NewBalance)

	_, err = svc.ClaimWork(ctx, "u1", "g1")
	var cooldown *ClaimCooldownError
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, "work", cooldown.Claim)
}

func TestClaimsAreIndependent(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	svc.workRoll = func() int64 { return 50 }
	ctx := context.Background()

	_, err := svc.ClaimDaily(ctx, "u1", "g1")
	require.NoError(t, err)

	// The daily timestamp does not block the work claim.
	res, err := svc.ClaimWork(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, DailyReward+50, res.NewBalance)
}

func TestWorkRollRange(t *testing.T) {
	svc := NewEconomyService(nil)
	for i := 0; i < 200; i++ {
		roll := svc.workRoll()
		require.GreaterOrEqual(t, roll, int64(WorkRewardMin))
		require.LessOrEqual(t, roll, int64(WorkRewardMax))
	}
}

func TestTransfer(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "alice", "g1", 100)
	require.NoError(t, err)

	bal, err := svc.Transfer(ctx, "g1", "alice", "bob", 60)
	require.NoError(t, err)
	require.EqualValues(t, 40, bal)

	bobBal, err := svc.Balance(ctx, "bob", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 60, bobBal)

	// An unaffordable transfer changes neither side.
	_, err = svc.Transfer(ctx, "g1", "alice", "bob", 500)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, err = svc.Balance(ctx, "alice", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 40, bal)
	bobBal, err = svc.Balance(ctx, "bob", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 60, bobBal)

	_, err = svc.Transfer(ctx, "g1", "alice", "alice", 10)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Transfer(ctx, "g1", "alice", "bob", 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWager(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	ctx := context.Background()

	_, err := svc.Credit(ctx, "u1", "g1", 100)
	require.NoError(t, err)

	svc.flip = func() string { return FlipHeads }
	res, err := svc.Wager(ctx, "u1", "g1", FlipHeads, 50)
	require.NoError(t, err)
	require.True(t, res.Won)
	require.Equal(t, FlipHeads, res.Outcome)
	require.EqualValues(t, 150, res.NewBalance)

	res, err = svc.Wager(ctx, "u1", "g1", FlipTails, 50)
	require.NoError(t, err)
	require.False(t, res.Won)
	require.EqualValues(t, 100, res.NewBalance)

	// A losing wager the balance cannot cover applies nothing.
	svc.flip = func() string { return FlipTails }
	_, err = svc.Wager(ctx, "u1", "g1", FlipHeads, 500)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	bal, err := svc.Balance(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 100, bal)

	_, err = svc.Wager(ctx, "u1", "g1", "edge", 10)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Wager(ctx, "u1", "g1", FlipHeads, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSetBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	ctx := context.Background()

	bal, err := svc.SetBalance(ctx, "u1", "g1", 500)
	require.NoError(t, err)
	require.EqualValues(t, 500, bal)

	bal, err = svc.SetBalance(ctx, "u1", "g1", 200)
	require.NoError(t, err)
	require.EqualValues(t, 200, bal)

	bal, err = svc.SetBalance(ctx, "u1", "g1", 200)
	require.NoError(t, err)
	require.EqualValues(t, 200, bal)

	_, err = svc.SetBalance(ctx, "u1", "g1", -1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTopByBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewEconomyService(db)
	ctx := context.Background()

	for _, row := range []models.EconomyAccount{
		{UserID: "a", GuildID: "g1", Balance: 10},
		{UserID: "b", GuildID: "g1", Balance: 300},
		{UserID: "c", GuildID: "g1", Balance: 40},
		{UserID: "d", GuildID: "g2", Balance: 9999},
	} {
		require.NoError(t, db.Create(&row).Error)
	}

	top, err := svc.TopByBalance(ctx, "g1", 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, "b", top[0].UserID)
	require.Equal(t, "c", top[1].UserID)
	require.Equal(t, "a", top[2].UserID)

	// Balances never leak across guilds.
	_, err = svc.Debit(ctx, "d", "g1", 1)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}
