package services

import "quest-reward-service/models"

// CheckEligibility is a pure predicate over DB snapshots. Checks run in a
// fixed order and the FIRST failing reason wins — a claim is never rejected
// for two reasons at once, so callers and tests can rely on determinism.
//
// Order: NotFound → QuestInactive → AlreadyCompleted → BudgetExhausted →
// CapacityExhausted → KycRequired.
//
// Note the snapshot here may be stale by commit time: the budget ledger's
// conditional update is what actually defends the invariants. This gate
// exists to fail fast with a precise reason before any write is attempted.
func CheckEligibility(quest *models.Quest, user *models.User, alreadyCompleted bool, stakedTotal float64) (ClaimFacts, *ClaimError) {
	if quest == nil {
		return ClaimFacts{}, rejection(models.RejectNotFound, "quest not found")
	}
	if quest.Status != models.QuestStatusActive {
		return ClaimFacts{}, rejection(models.RejectQuestInactive, "quest is not active")
	}
	if alreadyCompleted {
		return ClaimFacts{}, rejection(models.RejectAlreadyCompleted, "quest already completed by this user")
	}
	if quest.BudgetSpent >= quest.TotalBudget {
		return ClaimFacts{}, rejection(models.RejectBudgetExhausted, "quest budget exhausted")
	}
	if quest.TotalCompletions >= quest.MaxCompletions {
		return ClaimFacts{}, rejection(models.RejectCapacityExhausted, "quest max completions reached")
	}

	// A missing user row is fine: they just earn no bonuses. KYC only blocks
	// the claim when the quest demands it.
	facts := ClaimFacts{StakedTotal: stakedTotal}
	if user != nil {
		facts.IsKYCVerified = user.IsKYCVerified
	}
	if quest.RequiresKYC && !facts.IsKYCVerified {
		return ClaimFacts{}, rejection(models.RejectKycRequired, "KYC verification required")
	}

	return facts, nil
}
