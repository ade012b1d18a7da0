// handlers/claim.go
package handlers

import (
	"errors"
	"log"

	"quest-reward-service/models"
	"quest-reward-service/services"

	"github.com/gofiber/fiber/v2"
)

// rejectionStatus maps each claim rejection to its HTTP status. Anything not
// listed is a server fault.
func rejectionStatus(reason models.RejectReason) int {
	switch reason {
	case models.RejectAuthenticationFailed:
		return fiber.StatusUnauthorized
	case models.RejectNotFound:
		return fiber.StatusNotFound
	case models.RejectAlreadyCompleted:
		return fiber.StatusConflict
	case models.RejectKycRequired:
		return fiber.StatusForbidden
	case models.RejectOnChainSettlement:
		return fiber.StatusBadGateway
	default:
		// quest_inactive, budget_exhausted, capacity_exhausted
		return fiber.StatusBadRequest
	}
}

func SetupClaimRoutes(app *fiber.App, settlement *services.SettlementService) {
	// No wallet-context middleware here: the claim authenticates itself by
	// signature, so a forged header buys nothing.
	app.Post("/quests/complete", func(c *fiber.Ctx) error {
		var req struct {
			QuestID     string `json:"quest_id"`
			UserWallet  string `json:"user_wallet"`
			Signature   string `json:"signature"`
			Message     string `json:"message"`
			ActionProof string `json:"action_proof"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.QuestID == "" || req.UserWallet == "" || req.Signature == "" || req.Message == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quest_id, user_wallet, signature and message are required"})
		}

		result, err := settlement.CompleteQuest(c.Context(), services.ClaimRequest{
			QuestID:     req.QuestID,
			UserWallet:  req.UserWallet,
			Signature:   req.Signature,
			Message:     req.Message,
			ActionProof: req.ActionProof,
		})
		if err != nil {
			var claimErr *services.ClaimError
			if errors.As(err, &claimErr) {
				return c.Status(rejectionStatus(claimErr.Reason)).JSON(fiber.Map{
					"error":  claimErr.Detail,
					"reason": claimErr.Reason,
				})
			}

			var recErr *services.SettlementRecordingError
			if errors.As(err, &recErr) {
				// Reward moved on-chain but the record did not land. The proof
				// goes back to the caller; the reconciler finishes the job.
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "reward settled on-chain but recording failed — it will be credited automatically",
					"reason":  models.RejectPostSettlementRecording,
					"tx_hash": recErr.Proof,
				})
			}

			log.Printf("❌ Claim failed for quest %s / %s: %v", req.QuestID, req.UserWallet, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process claim"})
		}

		return c.JSON(fiber.Map{
			"message":       "Quest completed! 🎉",
			"reward_amount": result.RewardAmount,
			"completion":    result.Completion,
		})
	})
}
