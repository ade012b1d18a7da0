package services

import (
	"testing"

	"quest-reward-service/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens an isolated in-memory database. The single connection
// matters: every :memory: connection is its own database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Quest{},
		&models.User{},
		&models.QuestCompletion{},
		&models.Badge{},
		&models.Stake{},
		&models.DailyCheckin{},
		&models.Notification{},
		&models.PendingSettlement{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestQuest(t *testing.T, db *gorm.DB, mutate func(*models.Quest)) *models.Quest {
	t.Helper()

	quest := &models.Quest{
		ID:             uuid.NewString(),
		OwnerWallet:    "0x00000000000000000000000000000000000000aa",
		Title:          "Swap on the DEX",
		Status:         models.QuestStatusActive,
		BaseReward:     10,
		KycBonus:       5,
		StakerBonus:    2.5,
		TotalBudget:    100,
		MaxCompletions: 10,
	}
	if mutate != nil {
		mutate(quest)
	}
	if err := db.Create(quest).Error; err != nil {
		t.Fatalf("failed to create quest: %v", err)
	}
	return quest
}
