package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"quest-reward-service/models"
	"quest-reward-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// QuestService owns quest authoring: creation (with on-chain budget deposit
// for contract-backed quests), owner mutations and listings. Completion-side
// counters are off limits here — those belong to the budget ledger.
type QuestService struct {
	DB      *gorm.DB
	Config  PlatformConfig
	Settler ChainSettler
}

func NewQuestService(db *gorm.DB, cfg PlatformConfig, settler ChainSettler) *QuestService {
	return &QuestService{DB: db, Config: cfg, Settler: settler}
}

func (s *QuestService) validateBudget(totalBudget, baseReward, kycBonus, stakerBonus float64) error {
	if totalBudget < s.Config.MinQuestBudget {
		return fmt.Errorf("minimum quest budget is %g MON", s.Config.MinQuestBudget)
	}
	if totalBudget > s.Config.MaxQuestBudget {
		return fmt.Errorf("maximum quest budget is %g MON", s.Config.MaxQuestBudget)
	}
	if baseReward < s.Config.MinQuestReward {
		return fmt.Errorf("minimum reward is %g MON", s.Config.MinQuestReward)
	}
	// Worst case every completion earns every bonus; the budget must cover
	// at least one such completion.
	if totalBudget < baseReward+kycBonus+stakerBonus {
		return errors.New("budget must cover at least one quest completion")
	}
	return nil
}

// CreateQuest creates a quest. When on-chain settlement is requested, the
// budget deposit must succeed on-chain BEFORE the database row is written —
// same fail-hard policy as completion, no silent off-chain fallback.
func (s *QuestService) CreateQuest(c *fiber.Ctx) error {
	ownerWallet, ok := c.Locals("user_wallet").(string)
	if !ok || ownerWallet == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "wallet context missing"})
	}

	var req struct {
		Title          string  `json:"title"`
		Description    string  `json:"description"`
		Category       string  `json:"category"`
		Difficulty     string  `json:"difficulty"`
		BaseReward     float64 `json:"base_reward"`
		KycBonus       float64 `json:"kyc_bonus"`
		StakerBonus    float64 `json:"staker_bonus"`
		TotalBudget    float64 `json:"total_budget"`
		MaxCompletions int64   `json:"max_completions"`
		RequiresKYC    bool    `json:"requires_kyc"`
		RequiresStake  bool    `json:"requires_staking"`
		OnChain        bool    `json:"on_chain"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if len(req.Title) < 5 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title must be at least 5 characters"})
	}
	if req.KycBonus < 0 || req.StakerBonus < 0 || req.BaseReward < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amounts must be non-negative"})
	}
	if err := s.validateBudget(req.TotalBudget, req.BaseReward, req.KycBonus, req.StakerBonus); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	maxCompletions := req.MaxCompletions
	if maxCompletions <= 0 {
		// Worst-case per-completion cost, floored
		worst := req.BaseReward + req.KycBonus + req.StakerBonus
		maxCompletions = int64(req.TotalBudget / worst)
	}

	quest := models.Quest{
		ID:              uuid.NewString(),
		OwnerWallet:     NormalizeWallet(ownerWallet),
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Difficulty:      req.Difficulty,
		Status:          models.QuestStatusActive,
		BaseReward:      FloorAmount(req.BaseReward),
		KycBonus:        FloorAmount(req.KycBonus),
		StakerBonus:     FloorAmount(req.StakerBonus),
		TotalBudget:     FloorAmount(req.TotalBudget),
		MaxCompletions:  maxCompletions,
		RequiresKYC:     req.RequiresKYC,
		RequiresStaking: req.RequiresStake,
	}

	if req.OnChain {
		if s.Settler == nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "on-chain quest requested but settlement layer not configured"})
		}
		ctx, cancel := context.WithTimeout(c.Context(), s.Config.SettlementTimeout)
		defer cancel()
		contractID, txHash, err := s.Settler.CreateQuest(ctx, quest.Title, quest.Description, quest.BaseReward, quest.TotalBudget, quest.MaxCompletions)
		if err != nil {
			log.Printf("❌ On-chain quest creation failed for %s: %v", quest.OwnerWallet, err)
			// The deposit may have been broadcast; surface the hash so the
			// owner can track it rather than pretending nothing happened.
			resp := fiber.Map{"error": "on-chain quest creation failed"}
			if txHash != "" {
				resp["tx_hash"] = txHash
			}
			return c.Status(fiber.StatusBadGateway).JSON(resp)
		}
		quest.ContractQuestID = &contractID
		quest.TxHash = &txHash
	}

	if err := s.DB.Create(&quest).Error; err != nil {
		if quest.TxHash != nil {
			log.Printf("🚨 CRITICAL: deposit %s confirmed but quest insert failed: %v", *quest.TxHash, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "deposit succeeded but quest could not be recorded — save your transaction hash",
				"tx_hash": *quest.TxHash,
			})
		}
		log.Printf("DB Error creating quest: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create quest"})
	}

	return c.Status(fiber.StatusCreated).JSON(quest)
}

// UpdateQuest applies owner edits to quest metadata. Budget counters and
// status stay out of reach of this endpoint.
func (s *QuestService) UpdateQuest(c *fiber.Ctx) error {
	ownerWallet, _ := c.Locals("user_wallet").(string)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quest ID"})
	}

	var quest models.Quest
	if err := s.DB.Where("id = ? AND owner_wallet = ?", id, NormalizeWallet(ownerWallet)).First(&quest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found or not owned by caller"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Difficulty  *string `json:"difficulty"`
		ImageURL    *string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title != nil {
		quest.Title = *req.Title
	}
	if req.Description != nil {
		quest.Description = *req.Description
	}
	if req.Category != nil {
		quest.Category = *req.Category
	}
	if req.Difficulty != nil {
		quest.Difficulty = *req.Difficulty
	}
	if req.ImageURL != nil {
		quest.ImageURL = *req.ImageURL
	}

	if err := s.DB.Save(&quest).Error; err != nil {
		log.Printf("DB Error updating quest: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update quest"})
	}
	return c.JSON(quest)
}

// UpdateQuestStatus toggles Active/Paused/Completed (owner only).
func (s *QuestService) UpdateQuestStatus(c *fiber.Ctx) error {
	ownerWallet, _ := c.Locals("user_wallet").(string)
	id := c.Params("id")

	var req struct {
		Status models.QuestStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	switch req.Status {
	case models.QuestStatusActive, models.QuestStatusPaused, models.QuestStatusCompleted:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	res := s.DB.Model(&models.Quest{}).
		Where("id = ? AND owner_wallet = ?", id, NormalizeWallet(ownerWallet)).
		Update("status", req.Status)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update quest status"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found or not owned by caller"})
	}
	return c.JSON(fiber.Map{"message": "Quest status updated", "status": req.Status})
}

// DeleteQuest soft-deletes an owner's quest. Completion records survive.
func (s *QuestService) DeleteQuest(c *fiber.Ctx) error {
	ownerWallet, _ := c.Locals("user_wallet").(string)
	id := c.Params("id")

	res := s.DB.Where("id = ? AND owner_wallet = ?", id, NormalizeWallet(ownerWallet)).Delete(&models.Quest{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete quest"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found or not owned by caller"})
	}
	return c.JSON(fiber.Map{"message": "Quest deleted successfully"})
}

// GetActiveQuests is the public listing.
func (s *QuestService) GetActiveQuests(c *fiber.Ctx) error {
	var quests []models.Quest
	if err := s.DB.Where("status = ?", models.QuestStatusActive).
		Order("created_at DESC").
		Find(&quests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch quests"})
	}
	return c.JSON(quests)
}

func (s *QuestService) GetQuestByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(quest)
}

// GetOwnerQuests lists the caller's quests (dashboard view).
func (s *QuestService) GetOwnerQuests(c *fiber.Ctx) error {
	ownerWallet, _ := c.Locals("user_wallet").(string)
	var quests []models.Quest
	if err := s.DB.Where("owner_wallet = ?", NormalizeWallet(ownerWallet)).
		Order("created_at DESC").
		Find(&quests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch quests"})
	}
	return c.JSON(quests)
}

// UploadQuestImage stores a quest image (R2 when configured, local uploads
// dir otherwise) and records the resulting URL on the quest.
func (s *QuestService) UploadQuestImage(c *fiber.Ctx) error {
	ownerWallet, _ := c.Locals("user_wallet").(string)
	id := c.Params("id")

	var quest models.Quest
	if err := s.DB.Where("id = ? AND owner_wallet = ?", id, NormalizeWallet(ownerWallet)).First(&quest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quest not found or not owned by caller"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image is required"})
	}
	if fileHeader.Size > 10*1024*1024 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file too large (max 10MB)"})
	}

	key := fmt.Sprintf("quests/%s-%d%s", slug.Make(quest.Title), time.Now().Unix(), filepath.Ext(fileHeader.Filename))

	var url string
	if utils.R2Enabled() {
		url, err = utils.UploadFileToR2(fileHeader, key)
	} else {
		url, err = utils.SaveUpload(fileHeader, key)
	}
	if err != nil {
		log.Printf("❌ Quest image upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store image"})
	}

	quest.ImageURL = url
	if err := s.DB.Save(&quest).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save image URL"})
	}
	return c.JSON(fiber.Map{"image_url": url})
}
