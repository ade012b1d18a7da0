// workers/reconciler.go
package workers

import (
	"log"
	"time"

	"quest-reward-service/models"
	"quest-reward-service/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

const maxReplayAttempts = 20

// SettlementReconciler replays parked settlements: rewards that moved
// on-chain but whose database commit failed. Replay is idempotent, so running
// it against an already-recorded settlement is harmless.
type SettlementReconciler struct {
	DB         *gorm.DB
	Settlement *services.SettlementService
	Interval   time.Duration

	sched gocron.Scheduler
}

func NewSettlementReconciler(db *gorm.DB, settlement *services.SettlementService) *SettlementReconciler {
	return &SettlementReconciler{
		DB:         db,
		Settlement: settlement,
		Interval:   30 * time.Second,
	}
}

func (w *SettlementReconciler) Start() {
	sched, _ := gocron.NewScheduler()
	w.sched = sched
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(w.Interval),
		gocron.NewTask(func() {
			if n := w.RunOnce(); n > 0 {
				log.Printf("🔁 [RECONCILER] replayed %d parked settlement(s)", n)
			}
		}),
	)

	log.Println("🔁 Starting Settlement Reconciler…")
}

func (w *SettlementReconciler) Stop() {
	if w.sched != nil {
		_ = w.sched.Shutdown()
	}
}

// RunOnce replays every parked settlement once and returns how many were
// successfully recorded.
func (w *SettlementReconciler) RunOnce() int {
	var pending []models.PendingSettlement
	if err := w.DB.Where("attempts < ?", maxReplayAttempts).
		Order("created_at ASC").
		Limit(50).
		Find(&pending).Error; err != nil {
		log.Printf("❌ [RECONCILER] DB error listing pending settlements: %v", err)
		return 0
	}

	recorded := 0
	for i := range pending {
		p := &pending[i]
		if err := w.Settlement.RecordSettledClaim(p); err != nil {
			log.Printf("⚠️ [RECONCILER] replay failed for tx %s (attempt %d): %v", p.TxHash, p.Attempts+1, err)
			_ = w.DB.Model(&models.PendingSettlement{}).
				Where("tx_hash = ?", p.TxHash).
				Updates(map[string]interface{}{
					"attempts":   gorm.Expr("attempts + 1"),
					"last_error": err.Error(),
				}).Error
			continue
		}
		recorded++
	}
	return recorded
}
