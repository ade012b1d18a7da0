package services

import (
	"fmt"
	"log"

	"quest-reward-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// EvaluateBadges re-reads the user's completion count and grants every badge
// whose threshold has been reached. The (wallet, badge_type) unique index
// makes grants at-most-once: a duplicate insert is a no-op, not an error.
// Badge issuance never rolls back a completion — callers swallow the error.
func (s *BadgeService) EvaluateBadges(userWallet string) error {
	var user models.User
	if err := s.DB.Where("wallet_address = ?", userWallet).First(&user).Error; err != nil {
		return err
	}

	for _, trigger := range models.BadgeTriggers {
		if user.QuestCompletedCount < trigger.Threshold {
			continue
		}

		badge := models.Badge{
			ID:         uuid.NewString(),
			UserWallet: userWallet,
			BadgeType:  trigger.BadgeType,
			Tier:       trigger.Tier,
			Metadata:   fmt.Sprintf(`{"quest_count":%d}`, trigger.Threshold),
		}
		res := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_wallet"}, {Name: "badge_type"}},
			DoNothing: true,
		}).Create(&badge)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			log.Printf("🎖️ Badge awarded: %s (%s) → %s", trigger.Name, trigger.Tier, userWallet)
		}
	}
	return nil
}

// GetUserBadges lists a user's badges, newest first.
func (s *BadgeService) GetUserBadges(userWallet string) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.Where("user_wallet = ?", userWallet).
		Order("earned_at DESC").
		Find(&badges).Error
	return badges, err
}
