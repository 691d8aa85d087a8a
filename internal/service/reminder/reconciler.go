package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

// Reconciler is the at-least-once floor under the event-driven paths. It
// settles claims stuck at pending or unknown past their TTL and repairs
// reminder counters that drifted from the delivery log.
type Reconciler struct {
	db         *gorm.DB
	logger     *slog.Logger
	unknownTTL time.Duration
}

func NewReconciler(db *gorm.DB, logger *slog.Logger, unknownTTL time.Duration) *Reconciler {
	if unknownTTL <= 0 {
		unknownTTL = 24 * time.Hour
	}
	return &Reconciler{db: db, logger: logger, unknownTTL: unknownTTL}
}

// Run executes one reconciliation pass.
func (r *Reconciler) Run(ctx context.Context, now time.Time) error {
	settled, err := r.settleStaleClaims(ctx, now)
	if err != nil {
		return fmt.Errorf("settle stale claims: %w", err)
	}
	if settled > 0 {
		r.logger.Info("stale claims settled as rejected", slog.Int("count", settled))
	}

	repaired, err := r.recomputeCounters(ctx)
	if err != nil {
		return fmt.Errorf("recompute counters: %w", err)
	}
	if repaired > 0 {
		r.logger.Warn("reminder counters repaired from delivery log", slog.Int("count", repaired))
	}
	return nil
}

// settleStaleClaims turns non-terminal rows older than the TTL into
// rejections so every claim reaches exactly one terminal outcome. Unknown
// rows go stale when the gateway callback never arrives; pending rows go
// stale when a worker dies between the claim insert and the settle.
func (r *Reconciler) settleStaleClaims(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-r.unknownTTL)

	var stale []model.DeliveryLog
	err := r.db.WithContext(ctx).
		Where("outcome IN ? AND updated_at < ?",
			[]model.DeliveryOutcome{model.OutcomePending, model.OutcomeUnknown}, cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range stale {
		log := &stale[i]
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// Re-check under the transaction; a callback may have won.
			var fresh model.DeliveryLog
			if err := tx.First(&fresh, "id = ?", log.ID).Error; err != nil {
				return err
			}
			if fresh.Outcome.Terminal() {
				return nil
			}
			if err := settleSlot(tx, &fresh, sms.OutcomeRejected, "unsettled past reconcile cutoff"); err != nil {
				return err
			}
			settled++
			return nil
		})
		if err != nil {
			r.logger.Warn("stale claim settle failed",
				slog.String("delivery_log_id", log.ID.String()),
				slog.String("error", err.Error()))
		}
	}
	return settled, nil
}

// recomputeCounters compares each reminder's counters with the delivery log
// and rewrites any that drifted. Synthetic report rows are excluded.
func (r *Reconciler) recomputeCounters(ctx context.Context) (int, error) {
	type tally struct {
		ReminderID string
		Sent       int64
		Failed     int64
	}

	var tallies []tally
	err := r.db.WithContext(ctx).Model(&model.DeliveryLog{}).
		Select("reminder_id",
			"COUNT(*) FILTER (WHERE outcome = 'accepted') AS sent",
			"COUNT(*) FILTER (WHERE outcome = 'rejected') AS failed").
		Where("scheduled_time <> ?", syntheticReportSlot).
		Group("reminder_id").
		Scan(&tallies).Error
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, t := range tallies {
		res := r.db.WithContext(ctx).Model(&model.Reminder{}).
			Where("id = ? AND (total_sent <> ? OR total_failed <> ?)", t.ReminderID, t.Sent, t.Failed).
			Updates(map[string]any{"total_sent": t.Sent, "total_failed": t.Failed})
		if res.Error != nil {
			r.logger.Warn("counter repair failed",
				slog.String("reminder_id", t.ReminderID),
				slog.String("error", res.Error.Error()))
			continue
		}
		repaired += int(res.RowsAffected)
	}
	return repaired, nil
}
