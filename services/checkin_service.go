package services

import (
	"errors"
	"log"
	"time"

	"quest-reward-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const checkinBasePoints = 10

// CheckinService handles the daily check-in streak. One check-in per UTC
// calendar day per wallet, enforced by the (wallet, date) unique index.
type CheckinService struct {
	DB *gorm.DB
}

func NewCheckinService(db *gorm.DB) *CheckinService {
	return &CheckinService{DB: db}
}

func checkinDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// streakPoints: base 10 plus a streak bonus of 2 per consecutive day,
// capped at +20.
func streakPoints(streak int64) int64 {
	bonus := 2 * streak
	if bonus > 20 {
		bonus = 20
	}
	return checkinBasePoints + bonus
}

// CheckIn records today's check-in for the caller and credits reputation.
func (s *CheckinService) CheckIn(c *fiber.Ctx) error {
	wallet, _ := c.Locals("user_wallet").(string)
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "wallet context missing"})
	}
	wallet = NormalizeWallet(wallet)

	now := time.Now()
	today := checkinDay(now)
	yesterday := checkinDay(now.AddDate(0, 0, -1))

	// Streak continues only if yesterday has a row.
	var prev models.DailyCheckin
	streak := int64(1)
	err := s.DB.Where("user_wallet = ? AND checkin_date = ?", wallet, yesterday).First(&prev).Error
	switch {
	case err == nil:
		streak = prev.StreakCount + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	checkin := models.DailyCheckin{
		ID:           uuid.NewString(),
		UserWallet:   wallet,
		CheckinDate:  today,
		PointsEarned: streakPoints(streak),
		StreakCount:  streak,
	}
	if err := s.DB.Create(&checkin).Error; err != nil {
		if isUniqueViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already checked in today"})
		}
		log.Printf("DB Error creating checkin for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check in"})
	}

	// Reputation credit rides on the check-in; profile row may not exist yet.
	user := models.User{ID: uuid.NewString(), WalletAddress: wallet}
	if err := s.DB.Where("wallet_address = ?", wallet).FirstOrCreate(&user).Error; err == nil {
		_ = s.DB.Model(&models.User{}).
			Where("wallet_address = ?", wallet).
			Update("reputation_score", gorm.Expr("reputation_score + ?", checkin.PointsEarned)).Error
	}

	log.Printf("✅ Check-in: %s day %d (+%d pts)", wallet, streak, checkin.PointsEarned)
	return c.Status(fiber.StatusCreated).JSON(checkin)
}

// GetStreak returns the caller's current streak status.
func (s *CheckinService) GetStreak(c *fiber.Ctx) error {
	wallet := c.Params("wallet")
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid wallet address"})
	}
	wallet = NormalizeWallet(wallet)

	now := time.Now()
	var last models.DailyCheckin
	err := s.DB.Where("user_wallet = ?", wallet).
		Order("checkin_date DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(fiber.Map{"streak": 0, "checked_in_today": false})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	streak := int64(0)
	switch last.CheckinDate {
	case checkinDay(now):
		streak = last.StreakCount
	case checkinDay(now.AddDate(0, 0, -1)):
		streak = last.StreakCount
	}
	return c.JSON(fiber.Map{
		"streak":           streak,
		"checked_in_today": last.CheckinDate == checkinDay(now),
	})
}
