package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/pkg/locale"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

// Dispatcher runs the dispatch tick. Any number of instances may tick
// concurrently; exclusivity lives entirely in the delivery-log claim insert,
// so a second worker racing the same slot sees a conflict and walks away.
type Dispatcher struct {
	db           *gorm.DB
	cache        *goredis.Client
	sms          *sms.Client
	logger       *slog.Logger
	tick         time.Duration
	claimTimeout time.Duration
	maxDaily     int
}

func NewDispatcher(db *gorm.DB, cache *goredis.Client, smsClient *sms.Client, logger *slog.Logger, tick, claimTimeout time.Duration, maxDaily int) *Dispatcher {
	if tick <= 0 {
		tick = time.Minute
	}
	if claimTimeout <= 0 {
		claimTimeout = 30 * time.Second
	}
	return &Dispatcher{
		db:           db,
		cache:        cache,
		sms:          smsClient,
		logger:       logger,
		tick:         tick,
		claimTimeout: claimTimeout,
		maxDaily:     maxDaily,
	}
}

// Tick processes one dispatch window ending at now. Errors on individual
// slots are logged and skipped so one bad reminder cannot stall the loop.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) error {
	if n, err := d.completeExpired(ctx, now); err != nil {
		d.logger.Warn("auto-complete pass failed", slog.String("error", err.Error()))
	} else if n > 0 {
		d.logger.Info("reminders auto-completed", slog.Int64("count", n))
	}

	tickStart := now.Add(-d.tick)

	// Validity is inclusive on both ends at day granularity; comparing the
	// date columns against the full timestamp would drop the final day.
	today := adherence.DateOnly(now)
	var reminders []model.Reminder
	err := d.db.WithContext(ctx).
		Where("status = ?", model.ReminderActive).
		Where("start_date <= ? AND end_date >= ?", today, today).
		Find(&reminders).Error
	if err != nil {
		return fmt.Errorf("select active reminders: %w", err)
	}

	for _, r := range reminders {
		for _, slot := range DueSlots(r.ReminderTimes, tickStart, now) {
			if err := d.dispatchSlot(ctx, &r, slot, now); err != nil {
				d.logger.Error("slot dispatch failed",
					slog.String("reminder_id", r.ID.String()),
					slog.String("slot", slot.Time),
					slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

// completeExpired transitions reminders past their end date to completed.
// Idempotent: the status guard makes the second invocation a no-op.
func (d *Dispatcher) completeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("status IN ? AND end_date < ?", []model.ReminderStatus{model.ReminderActive, model.ReminderPaused}, adherence.DateOnly(now)).
		Update("status", model.ReminderCompleted)
	return res.RowsAffected, res.Error
}

// dispatchSlot runs one claim-send-settle cycle under its own deadline, so
// a hung gateway call cannot eat the whole tick.
func (d *Dispatcher) dispatchSlot(ctx context.Context, r *model.Reminder, slot dueSlot, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, d.claimTimeout)
	defer cancel()

	var med model.Medication
	if err := d.db.WithContext(ctx).First(&med, "id = ?", r.MedicationID).Error; err != nil {
		return fmt.Errorf("load medication: %w", err)
	}
	if !med.Active || med.EndDate.Before(adherence.DateOnly(now)) {
		return d.pauseForMedication(ctx, r, &med)
	}
	var patient model.Patient
	if err := d.db.WithContext(ctx).First(&patient, "id = ?", r.PatientID).Error; err != nil {
		return fmt.Errorf("load patient: %w", err)
	}

	message := locale.RenderDoseReminder(r.LanguageCode, locale.Params{
		MedicineName:  med.Name,
		Dosage:        med.Dosage,
		CustomMessage: derefOr(r.CustomMessage, ""),
	})

	// Cap check before claiming. The redis counter is a cheap pre-filter;
	// the log count inside the claim path is what actually decides.
	if d.overCap(ctx, r.PatientID, slot.Date) {
		return d.claimTerminal(ctx, r, slot, message, model.OutcomeSkippedCap, "daily send cap reached")
	}

	log := model.DeliveryLog{
		ReminderID:    r.ID,
		PatientID:     r.PatientID,
		ScheduledDate: slot.Date,
		ScheduledTime: slot.Time,
		Message:       message,
		Outcome:       model.OutcomePending,
		SentAt:        now,
	}
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   conflictColumns(),
		DoNothing: true,
	}).Create(&log)
	if res.Error != nil {
		return fmt.Errorf("claim slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Another worker already owns this slot.
		return nil
	}

	if !patient.Active || patient.Phone == nil {
		return d.settle(ctx, &log, sms.Result{
			Outcome: sms.OutcomeRejected,
			Detail:  "patient inactive or has no phone number",
		})
	}

	result, err := d.sms.Send(*patient.Phone, message)
	if err != nil {
		result = sms.Result{Outcome: sms.OutcomeRejected, Detail: err.Error()}
	}

	if err := d.settle(ctx, &log, result); err != nil {
		return err
	}
	if result.Outcome == sms.OutcomeAccepted {
		d.bumpCapCounter(ctx, r.PatientID, slot.Date)
	}
	return nil
}

// pauseForMedication cascade-pauses a reminder whose medication was
// deactivated or ran past its validity window. The slot is not claimed;
// nothing should go out for a medication the patient is off.
func (d *Dispatcher) pauseForMedication(ctx context.Context, r *model.Reminder, med *model.Medication) error {
	res := d.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ? AND status = ?", r.ID, model.ReminderActive).
		Update("status", model.ReminderPaused)
	if res.Error != nil {
		return fmt.Errorf("pause reminder for inactive medication: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		d.logger.Info("reminder paused, medication inactive or expired",
			slog.String("reminder_id", r.ID.String()),
			slog.String("medication_id", med.ID.String()))
	}
	return nil
}

// claimTerminal records a slot that is settled without a gateway call, e.g.
// deferred by the daily cap. The conflict clause keeps it idempotent.
func (d *Dispatcher) claimTerminal(ctx context.Context, r *model.Reminder, slot dueSlot, message string, outcome model.DeliveryOutcome, reason string) error {
	log := model.DeliveryLog{
		ReminderID:    r.ID,
		PatientID:     r.PatientID,
		ScheduledDate: slot.Date,
		ScheduledTime: slot.Time,
		Message:       message,
		Outcome:       outcome,
		FailureReason: &reason,
		SentAt:        time.Now(),
	}
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   conflictColumns(),
		DoNothing: true,
	}).Create(&log)
	if res.Error != nil {
		return fmt.Errorf("claim slot (%s): %w", outcome, res.Error)
	}
	if res.RowsAffected > 0 {
		d.logger.Info("slot deferred",
			slog.String("reminder_id", r.ID.String()),
			slog.String("slot", slot.Time),
			slog.String("outcome", string(outcome)))
	}
	return nil
}

func (d *Dispatcher) settle(ctx context.Context, log *model.DeliveryLog, result sms.Result) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result.GatewayMessageID != "" {
			err := tx.Model(log).Update("gateway_message_id", result.GatewayMessageID).Error
			if err != nil {
				return fmt.Errorf("record gateway message id: %w", err)
			}
		}
		return settleSlot(tx, log, result.Outcome, result.Detail)
	})
}

// overCap counts today's attempted sends for the patient. Rows that never
// reached the gateway (cap deferrals, pre-send rejections) do not count.
func (d *Dispatcher) overCap(ctx context.Context, patientID uuid.UUID, day time.Time) bool {
	if d.maxDaily <= 0 {
		return false
	}

	if d.cache != nil {
		n, err := d.cache.Get(ctx, capKey(patientID, day)).Int()
		if err == nil && n >= d.maxDaily {
			return true
		}
	}

	var n int64
	err := d.db.WithContext(ctx).Model(&model.DeliveryLog{}).
		Where("patient_id = ? AND scheduled_date = ?", patientID, day).
		Where("outcome IN ?", []model.DeliveryOutcome{model.OutcomePending, model.OutcomeAccepted, model.OutcomeUnknown}).
		Count(&n).Error
	if err != nil {
		d.logger.Warn("cap count failed", slog.String("error", err.Error()))
		return false
	}
	return n >= int64(d.maxDaily)
}

func (d *Dispatcher) bumpCapCounter(ctx context.Context, patientID uuid.UUID, day time.Time) {
	if d.cache == nil {
		return
	}
	key := capKey(patientID, day)
	pipe := d.cache.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Debug("cap counter bump failed", slog.String("error", err.Error()))
	}
}

func conflictColumns() []clause.Column {
	return []clause.Column{
		{Name: "reminder_id"},
		{Name: "scheduled_date"},
		{Name: "scheduled_time"},
	}
}

func capKey(patientID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("smscap:%s:%s", patientID.String(), day.Format("2006-01-02"))
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
