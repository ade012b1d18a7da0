package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"quest-reward-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimRequest is an end user's assertion that they completed a quest.
type ClaimRequest struct {
	QuestID    string
	UserWallet string
	Signature  string
	Message    string

	// Optional proof of the underlying action (e.g. the tx the user performed),
	// forwarded into the on-chain settlement for contract-backed quests.
	ActionProof string
}

// ClaimResult is returned on a fully settled, committed claim.
type ClaimResult struct {
	RewardAmount float64
	Completion   *models.QuestCompletion
}

// SettlementService drives a claim end to end: authenticate → eligibility →
// reward computation → optional on-chain settlement → atomic ledger commit →
// side effects. It owns the only paths that write quest counters, completion
// records and pending settlements.
type SettlementService struct {
	DB       *gorm.DB
	Config   PlatformConfig
	Ledger   *BudgetLedger
	Badges   *BadgeService
	Notifier Notifier
	Settler  ChainSettler // nil when on-chain settlement is disabled
}

func NewSettlementService(db *gorm.DB, cfg PlatformConfig, settler ChainSettler, notifier Notifier) *SettlementService {
	return &SettlementService{
		DB:       db,
		Config:   cfg,
		Ledger:   NewBudgetLedger(db),
		Badges:   NewBadgeService(db),
		Notifier: notifier,
		Settler:  settler,
	}
}

// CompleteQuest processes one claim. Recoverable rejections come back as
// *ClaimError; the critical post-settlement inconsistency comes back as
// *SettlementRecordingError and is never folded into an ordinary rejection.
func (s *SettlementService) CompleteQuest(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	if err := VerifyWalletSignature(req.UserWallet, req.Message, req.Signature); err != nil {
		return nil, rejection(models.RejectAuthenticationFailed, "invalid signature")
	}
	wallet := NormalizeWallet(req.UserWallet)

	// Snapshot reads. These can be stale under concurrency — the budget
	// ledger's conditional update is the real guard; the gate just produces
	// a precise early rejection without touching anything.
	var quest models.Quest
	if err := s.DB.First(&quest, "id = ?", req.QuestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rejection(models.RejectNotFound, "quest not found")
		}
		return nil, fmt.Errorf("quest lookup failed: %w", err)
	}

	var completed int64
	if err := s.DB.Model(&models.QuestCompletion{}).
		Where("quest_id = ? AND user_wallet = ?", quest.ID, wallet).
		Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("completion lookup failed: %w", err)
	}
	alreadyCompleted := completed > 0

	// The contract is a second source of truth for prior completions. A read
	// failure is not fatal — the off-chain unique index still holds the line.
	if !alreadyCompleted && quest.ContractBacked() && s.Settler != nil {
		onChain, err := s.Settler.HasCompleted(ctx, *quest.ContractQuestID, wallet)
		if err != nil {
			log.Printf("⚠️  On-chain completion check failed for quest %s: %v", quest.ID, err)
		} else if onChain {
			alreadyCompleted = true
		}
	}

	var user *models.User
	var dbUser models.User
	if err := s.DB.Where("wallet_address = ?", wallet).First(&dbUser).Error; err == nil {
		user = &dbUser
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	stakedTotal, err := s.activeStakeTotal(wallet)
	if err != nil {
		return nil, fmt.Errorf("stake lookup failed: %w", err)
	}

	facts, cerr := CheckEligibility(&quest, user, alreadyCompleted, stakedTotal)
	if cerr != nil {
		return nil, cerr
	}

	reward := CalculateReward(&quest, facts)

	// Contract-backed quests settle on-chain FIRST: no off-chain record may
	// exist without a successful settlement. A failed or unconfigured
	// settlement rejects the claim; it never degrades to an off-chain-only
	// payout. Off-chain-only quests skip straight to the ledger commit.
	var proof *string
	if quest.ContractBacked() {
		if s.Settler == nil {
			return nil, rejection(models.RejectOnChainSettlement, "settlement layer not configured")
		}
		settleCtx, cancel := context.WithTimeout(ctx, s.Config.SettlementTimeout)
		txHash, err := s.Settler.SubmitSettlement(settleCtx, *quest.ContractQuestID, wallet, req.ActionProof)
		cancel()
		if err != nil {
			log.Printf("❌ On-chain settlement failed for quest %s / %s: %v", quest.ID, wallet, err)
			return nil, rejection(models.RejectOnChainSettlement, "on-chain settlement failed")
		}
		proof = &txHash
		log.Printf("⛓️  Settled quest %s for %s in tx %s", quest.ID, wallet, txHash)
	}

	// Value (if any) has moved. From here on, client cancellation is not
	// honored: the claim is carried through to a committed record or a
	// reconcilable pending settlement.
	completion, err := s.commitClaim(&quest, wallet, reward, proof)
	if err != nil {
		return nil, err
	}

	s.dispatchSideEffects(&quest, wallet, reward)

	return &ClaimResult{RewardAmount: reward, Completion: completion}, nil
}

// commitClaim is the authoritative off-chain commit: one conditional budget
// update plus one unique-constrained insert. proof != nil means an on-chain
// settlement already happened, which turns any failure here into the critical
// PostSettlementRecordingFailure path instead of an ordinary rejection.
func (s *SettlementService) commitClaim(quest *models.Quest, wallet string, reward float64, proof *string) (*models.QuestCompletion, error) {
	if err := s.Ledger.TryCommit(quest.ID, reward); err != nil {
		switch {
		case proof != nil:
			return nil, s.parkSettlement(quest.ID, wallet, reward, *proof, err)
		case errors.Is(err, ErrOverspend):
			return nil, rejection(models.RejectBudgetExhausted, "quest budget exhausted")
		case errors.Is(err, ErrOverCapacity):
			return nil, rejection(models.RejectCapacityExhausted, "quest max completions reached")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, rejection(models.RejectNotFound, "quest not found")
		default:
			return nil, err
		}
	}

	completion := &models.QuestCompletion{
		ID:           uuid.NewString(),
		QuestID:      quest.ID,
		UserWallet:   wallet,
		RewardAmount: reward,
		TxHash:       proof,
	}
	if err := s.DB.Create(completion).Error; err != nil {
		if isUniqueViolation(err) {
			// A concurrent duplicate claim won the insert. Give the reserved
			// budget and slot back, or they leak forever.
			if relErr := s.Ledger.Release(quest.ID, reward); relErr != nil {
				log.Printf("❌ Failed to release reservation for quest %s: %v", quest.ID, relErr)
			}
			return nil, rejection(models.RejectAlreadyCompleted, "quest already completed by this user")
		}
		if relErr := s.Ledger.Release(quest.ID, reward); relErr != nil {
			log.Printf("❌ Failed to release reservation for quest %s: %v", quest.ID, relErr)
		}
		if proof != nil {
			return nil, s.parkSettlement(quest.ID, wallet, reward, *proof, err)
		}
		return nil, fmt.Errorf("completion insert failed: %w", err)
	}

	return completion, nil
}

// parkSettlement persists the critical inconsistency keyed by the settlement
// proof so the reconciliation worker can replay ONLY the off-chain commit.
// A second on-chain settlement is never attempted for the same claim.
func (s *SettlementService) parkSettlement(questID, wallet string, reward float64, proof string, cause error) error {
	pending := models.PendingSettlement{
		ID:           uuid.NewString(),
		TxHash:       proof,
		QuestID:      questID,
		UserWallet:   wallet,
		RewardAmount: reward,
		LastError:    cause.Error(),
	}
	if err := s.DB.Where("tx_hash = ?", proof).FirstOrCreate(&pending).Error; err != nil {
		log.Printf("🚨 CRITICAL: settlement %s could not be parked for reconciliation: %v", proof, err)
	} else {
		log.Printf("🚨 Settlement %s parked for reconciliation (quest %s, user %s)", proof, questID, wallet)
	}
	return &SettlementRecordingError{Proof: proof, QuestID: questID, UserWallet: wallet, Err: cause}
}

// RecordSettledClaim replays the off-chain commit for a parked settlement.
// Idempotent: the proof is the key, and an existing completion row (written
// by a racing replay or the original request) counts as success.
func (s *SettlementService) RecordSettledClaim(pending *models.PendingSettlement) error {
	var existing int64
	if err := s.DB.Model(&models.QuestCompletion{}).
		Where("quest_id = ? AND user_wallet = ?", pending.QuestID, pending.UserWallet).
		Count(&existing).Error; err != nil {
		return err
	}

	if existing == 0 {
		var quest models.Quest
		if err := s.DB.First(&quest, "id = ?", pending.QuestID).Error; err != nil {
			return fmt.Errorf("quest lookup failed: %w", err)
		}
		proof := pending.TxHash
		if _, err := s.commitClaim(&quest, pending.UserWallet, pending.RewardAmount, &proof); err != nil {
			var claimErr *ClaimError
			if errors.As(err, &claimErr) && claimErr.Reason == models.RejectAlreadyCompleted {
				// Completion appeared between the count and the insert: a
				// concurrent replay won and owns the side effects. This one
				// recorded nothing, so it must credit nothing — just clear
				// the parked row.
				return s.DB.Delete(&models.PendingSettlement{}, "tx_hash = ?", pending.TxHash).Error
			}
			// Still failing; leave the row for the next pass.
			var recErr *SettlementRecordingError
			if errors.As(err, &recErr) {
				return recErr.Err
			}
			return err
		}
		s.dispatchSideEffects(&quest, pending.UserWallet, pending.RewardAmount)
	}

	return s.DB.Delete(&models.PendingSettlement{}, "tx_hash = ?", pending.TxHash).Error
}

// dispatchSideEffects runs the best-effort tail of a settled claim: user
// stats, badges, notification. None of these can roll the completion back.
func (s *SettlementService) dispatchSideEffects(quest *models.Quest, wallet string, reward float64) {
	user := models.User{ID: uuid.NewString(), WalletAddress: wallet}
	if err := s.DB.Where("wallet_address = ?", wallet).FirstOrCreate(&user).Error; err != nil {
		log.Printf("❌ Failed to ensure user row for %s: %v", wallet, err)
		return
	}
	if err := s.DB.Model(&models.User{}).
		Where("wallet_address = ?", wallet).
		Updates(map[string]interface{}{
			"total_earned":          gorm.Expr("total_earned + ?", reward),
			"quest_completed_count": gorm.Expr("quest_completed_count + 1"),
		}).Error; err != nil {
		log.Printf("❌ Failed to update stats for %s: %v", wallet, err)
	}

	if err := s.Badges.EvaluateBadges(wallet); err != nil {
		log.Printf("⚠️  Badge evaluation failed for %s: %v", wallet, err)
	}

	if s.Notifier != nil {
		_ = s.Notifier.NotifyQuestCompleted(QuestCompletedEvent{
			UserWallet:   wallet,
			QuestID:      quest.ID,
			QuestTitle:   quest.Title,
			RewardAmount: reward,
		})
	}
}

func (s *SettlementService) activeStakeTotal(wallet string) (float64, error) {
	var total float64
	err := s.DB.Model(&models.Stake{}).
		Where("user_wallet = ? AND is_active = ?", wallet, true).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// isUniqueViolation matches postgres (23505) and sqlite unique errors without
// binding to a driver error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
