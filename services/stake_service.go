package services

import (
	"log"
	"time"

	"quest-reward-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StakeService tracks locked token positions. Only the active total matters
// to the reward engine (staker bonus eligibility); a quest's requires_staking
// flag is informational for listings, it does not gate claims.
type StakeService struct {
	DB *gorm.DB
}

func NewStakeService(db *gorm.DB) *StakeService {
	return &StakeService{DB: db}
}

// Stake opens a new active position for the caller.
func (s *StakeService) Stake(c *fiber.Ctx) error {
	wallet, _ := c.Locals("user_wallet").(string)
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "wallet context missing"})
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Stake amount must be positive"})
	}

	stake := models.Stake{
		ID:         uuid.NewString(),
		UserWallet: NormalizeWallet(wallet),
		Amount:     FloorAmount(req.Amount),
		IsActive:   true,
	}
	if err := s.DB.Create(&stake).Error; err != nil {
		log.Printf("DB Error creating stake for %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to stake"})
	}
	return c.Status(fiber.StatusCreated).JSON(stake)
}

// Unstake closes one active position by id.
func (s *StakeService) Unstake(c *fiber.Ctx) error {
	wallet, _ := c.Locals("user_wallet").(string)
	id := c.Params("id")

	now := time.Now()
	res := s.DB.Model(&models.Stake{}).
		Where("id = ? AND user_wallet = ? AND is_active = ?", id, NormalizeWallet(wallet), true).
		Updates(map[string]interface{}{"is_active": false, "unstaked_at": &now})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to unstake"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Active stake not found"})
	}
	return c.JSON(fiber.Map{"message": "Unstaked successfully"})
}

// GetStakes lists a wallet's positions with the active total.
func (s *StakeService) GetStakes(c *fiber.Ctx) error {
	wallet := c.Params("wallet")
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid wallet address"})
	}
	wallet = NormalizeWallet(wallet)

	var stakes []models.Stake
	if err := s.DB.Where("user_wallet = ?", wallet).
		Order("staked_at DESC").
		Find(&stakes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch stakes"})
	}

	var total float64
	if err := s.DB.Model(&models.Stake{}).
		Where("user_wallet = ? AND is_active = ?", wallet, true).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch stakes"})
	}

	return c.JSON(fiber.Map{"stakes": stakes, "active_total": total})
}
