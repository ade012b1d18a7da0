package services

import (
	"errors"
	"log"

	"quest-reward-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserService serves profile reads and writes. Profiles are keyed by wallet
// address; a profile row is created lazily on first write or first settled
// claim, whichever comes first.
type UserService struct {
	DB     *gorm.DB
	Badges *BadgeService
}

func NewUserService(db *gorm.DB, badges *BadgeService) *UserService {
	return &UserService{DB: db, Badges: badges}
}

// GetUserByWallet returns the profile, or a zeroed profile for unknown
// wallets so the frontend never needs a signup flow.
func (s *UserService) GetUserByWallet(c *fiber.Ctx) error {
	wallet := c.Params("wallet")
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid wallet address"})
	}
	wallet = NormalizeWallet(wallet)

	var user models.User
	if err := s.DB.First(&user, "wallet_address = ?", wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(models.User{WalletAddress: wallet})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(user)
}

// UpdateProfile upserts username/avatar/bio for the caller's own wallet.
func (s *UserService) UpdateProfile(c *fiber.Ctx) error {
	wallet, _ := c.Locals("user_wallet").(string)
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "wallet context missing"})
	}
	wallet = NormalizeWallet(wallet)

	var req struct {
		Username  *string `json:"username"`
		AvatarURL *string `json:"avatar_url"`
		Bio       *string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Username != nil && len(*req.Username) > 32 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username too long (max 32)"})
	}

	user := models.User{ID: uuid.NewString(), WalletAddress: wallet}
	if err := s.DB.Where("wallet_address = ?", wallet).FirstOrCreate(&user).Error; err != nil {
		log.Printf("DB Error upserting user %s: %v", wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if len(updates) > 0 {
		if err := s.DB.Model(&user).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	}
	return c.JSON(user)
}

// GetUserCompletions lists a wallet's settled claims, newest first.
func (s *UserService) GetUserCompletions(c *fiber.Ctx) error {
	wallet := c.Params("wallet")
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid wallet address"})
	}

	var completions []models.QuestCompletion
	if err := s.DB.Where("user_wallet = ?", NormalizeWallet(wallet)).
		Order("completed_at DESC").
		Limit(100).
		Find(&completions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch completions"})
	}
	return c.JSON(completions)
}

// GetUserBadges lists earned badges.
func (s *UserService) GetUserBadges(c *fiber.Ctx) error {
	wallet := c.Params("wallet")
	if !IsWalletAddress(wallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid wallet address"})
	}

	badges, err := s.Badges.GetUserBadges(NormalizeWallet(wallet))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch badges"})
	}
	return c.JSON(badges)
}

// GetLeaderboard ranks users by total earnings.
func (s *UserService) GetLeaderboard(c *fiber.Ctx) error {
	var users []models.User
	if err := s.DB.Where("quest_completed_count > 0").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "total_earned"}, Desc: true}).
		Limit(50).
		Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}
	return c.JSON(users)
}
