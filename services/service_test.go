package services

import (
	"fmt"
	"testing"

	"guild-bot-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database so tests cannot interfere
// with each other.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// sqlite allows a single writer; one pooled connection keeps concurrent
	// tests exercising the store's serialization instead of tripping driver
	// lock errors.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserProgression{},
		&models.EconomyAccount{},
		&models.LootSession{},
		&models.LootItem{},
		&models.SessionParticipant{},
		&models.LootRecord{},
		&models.ScheduledEvent{},
	))
	return db
}
