package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"habit-reward-system/models"
)

// openTestDB opens a per-test in-memory database with the full schema.
// cache=shared keeps the database alive across the pool's connections.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.Streak{},
		&models.Inventory{},
		&models.RewardLedgerEntry{},
		&models.RewardDailyCounter{},
		&models.DailyActivityAggregate{},
		&models.WeeklyChallengeSet{},
		&models.StreamAccount{},
		&models.Task{},
		&models.Goal{},
		&models.Event{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
