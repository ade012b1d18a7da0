package services

import (
	"math"

	"quest-reward-service/models"
)

// ClaimFacts are the user-side inputs to the reward calculation, gathered by
// the eligibility gate from the DB snapshot.
type ClaimFacts struct {
	IsKYCVerified bool
	StakedTotal   float64
}

// FloorAmount truncates to the currency's minimal precision (2 decimals).
// Always floor, never round-to-nearest: the ledger must never pay out more
// than was budgeted.
func FloorAmount(v float64) float64 {
	return math.Floor(v*100) / 100
}

// CalculateReward is a pure function of quest configuration and user facts.
// Bonuses stack additively and independently.
func CalculateReward(quest *models.Quest, facts ClaimFacts) float64 {
	reward := quest.BaseReward
	if quest.KycBonus > 0 && facts.IsKYCVerified {
		reward += quest.KycBonus
	}
	if quest.StakerBonus > 0 && facts.StakedTotal > 0 {
		reward += quest.StakerBonus
	}
	return FloorAmount(reward)
}

// SplitPlatformFee divides a reward into the platform's cut and the user's
// share. Both sides floor; the remainder dust stays with the budget.
func SplitPlatformFee(cfg PlatformConfig, reward float64) (platformFee, userReward float64) {
	platformFee = FloorAmount(reward * cfg.FeePercentage / 100)
	userReward = FloorAmount(reward - platformFee)
	return platformFee, userReward
}
