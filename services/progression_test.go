package services

import (
	"context"
	"testing"
	"time"

	"guild-bot-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLevelCurve(t *testing.T) {
	require.EqualValues(t, 100, XPForLevel(1))
	require.EqualValues(t, 300, XPForLevel(5))
	require.EqualValues(t, 2550, XPForLevel(50))

	// Level floors at 1 below the first threshold.
	require.EqualValues(t, 1, LevelFromXP(0))
	require.EqualValues(t, 1, LevelFromXP(149))

	// Every threshold is exactly the first XP value of its level.
	for level := uint32(2); level <= 60; level++ {
		at := XPForLevel(level)
		require.EqualValues(t, level, LevelFromXP(at), "level %d at threshold", level)
		require.EqualValues(t, level-1, LevelFromXP(at-1), "level %d just below threshold", level)
	}
}

func TestGrantXPCooldown(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	res, err := svc.GrantXP(ctx, "u1", "g1", 20)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.EqualValues(t, 20, res.XP)
	require.EqualValues(t, 1, res.Level)
	require.EqualValues(t, 1, res.MessageCount)

	// Inside the window the grant is a silent no-op, not an error.
	res, err = svc.GrantXP(ctx, "u1", "g1", 20)
	require.NoError(t, err)
	require.False(t, res.Applied)

	prog, err := svc.Get(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 20, prog.XP)
	require.EqualValues(t, 1, prog.MessageCount)
}

func TestGrantXPAfterCooldown(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	_, err := svc.GrantXP(ctx, "u1", "g1", 20)
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-2 * time.Minute)
	require.NoError(t, db.Model(&models.UserProgression{}).
		Where("user_id = ? AND guild_id = ?", "u1", "g1").
		Update("last_xp_grant_at", stale).Error)

	res, err := svc.GrantXP(ctx, "u1", "g1", 15)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.EqualValues(t, 35, res.XP)
	require.EqualValues(t, 2, res.MessageCount)
}

func TestGrantXPLevelUpMilestone(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	// One grant away from the level 5 milestone at 300 XP.
	seed := models.UserProgression{UserID: "u1", GuildID: "g1", XP: 290, Level: 4}
	require.NoError(t, db.Create(&seed).Error)

	res, err := svc.GrantXP(ctx, "u1", "g1", 15)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.True(t, res.LeveledUp)
	require.EqualValues(t, 5, res.Level)
	require.Equal(t, "Active", res.MilestoneRole)

	prog, err := svc.Get(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 5, prog.Level)
}

func TestGrantXPLevelUpWithoutMilestone(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	// One grant away from level 2 at 150 XP.
	seed := models.UserProgression{UserID: "u1", GuildID: "g1", XP: 140, Level: 1}
	require.NoError(t, db.Create(&seed).Error)

	res, err := svc.GrantXP(ctx, "u1", "g1", 20)
	require.NoError(t, err)
	require.True(t, res.LeveledUp)
	require.EqualValues(t, 2, res.Level)
	require.Empty(t, res.MilestoneRole)
}

func TestGrantXPLevelMatchesCurve(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	// A single grant crossing several thresholds commits XP and level
	// together; the stored level must equal the curve at the stored XP.
	res, err := svc.GrantXP(ctx, "u1", "g1", 500)
	require.NoError(t, err)
	require.True(t, res.LeveledUp)
	require.EqualValues(t, 9, res.Level)

	prog, err := svc.Get(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, LevelFromXP(prog.XP), prog.Level)
}

func TestGetUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)

	_, err := svc.Get(context.Background(), "nobody", "g1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTopByXP(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	rows := []models.UserProgression{
		{UserID: "a", GuildID: "g1", XP: 100, Level: 1},
		{UserID: "b", GuildID: "g1", XP: 500, Level: 9},
		{UserID: "c", GuildID: "g1", XP: 300, Level: 5},
		{UserID: "d", GuildID: "g2", XP: 900, Level: 17},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	top, err := svc.TopByXP(ctx, "g1", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "b", top[0].UserID)
	require.Equal(t, "c", top[1].UserID)
}

func TestSetXP(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	// Creates the row when the user has none.
	prog, err := svc.SetXP(ctx, "u1", "g1", 1000)
	require.NoError(t, err)
	require.EqualValues(t, 1000, prog.XP)
	require.EqualValues(t, 19, prog.Level)

	// Raising is fine.
	prog, err = svc.SetXP(ctx, "u1", "g1", 2550)
	require.NoError(t, err)
	require.EqualValues(t, 50, prog.Level)

	// Lowering is refused and leaves the row alone.
	_, err = svc.SetXP(ctx, "u1", "g1", 100)
	require.ErrorIs(t, err, ErrInvalidAmount)

	prog, err = svc.Get(ctx, "u1", "g1")
	require.NoError(t, err)
	require.EqualValues(t, 2550, prog.XP)
}
