package services

import (
	"errors"
	"fmt"

	"quest-reward-service/models"

	"gorm.io/gorm"
)

// Race losers from TryCommit. The coordinator maps these back to
// BudgetExhausted / CapacityExhausted for the caller.
var (
	ErrOverspend    = errors.New("budget reservation would overspend quest budget")
	ErrOverCapacity = errors.New("completion slot reservation exceeds quest capacity")
)

// BudgetLedger owns the quest's budget_spent / total_completions pair.
// No other code path may write those columns.
type BudgetLedger struct {
	DB *gorm.DB
}

func NewBudgetLedger(db *gorm.DB) *BudgetLedger {
	return &BudgetLedger{DB: db}
}

// TryCommit atomically reserves budget and a completion slot for exactly one
// claim. The guard lives in the WHERE clause, so two claims racing for the
// last unit of budget resolve inside the database: one row update wins, the
// other sees zero rows affected and loses. No rows affected is the failure
// signal, not an exception path.
func (l *BudgetLedger) TryCommit(questID string, reward float64) error {
	res := l.DB.Model(&models.Quest{}).
		Where("id = ? AND budget_spent + ? <= total_budget AND total_completions < max_completions", questID, reward).
		Updates(map[string]interface{}{
			"budget_spent":      gorm.Expr("budget_spent + ?", reward),
			"total_completions": gorm.Expr("total_completions + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("budget commit failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Lost the race (or the snapshot was stale). Re-read to report which
	// guard failed.
	var quest models.Quest
	if err := l.DB.First(&quest, "id = ?", questID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("budget commit recheck failed: %w", err)
	}
	if quest.TotalCompletions >= quest.MaxCompletions {
		return ErrOverCapacity
	}
	return ErrOverspend
}

// Release is the compensating decrement for a reservation whose completion
// record could not be inserted (e.g. a concurrent duplicate claim). Without
// it, ghost reservations would accumulate against the budget.
func (l *BudgetLedger) Release(questID string, reward float64) error {
	res := l.DB.Model(&models.Quest{}).
		Where("id = ? AND budget_spent >= ? AND total_completions > 0", questID, reward).
		Updates(map[string]interface{}{
			"budget_spent":      gorm.Expr("budget_spent - ?", reward),
			"total_completions": gorm.Expr("total_completions - 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("budget release failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("budget release for quest %s matched no row", questID)
	}
	return nil
}
