// Package reminder owns the SMS scheduling core: reminder lifecycle, the
// dispatch tick that claims and sends due slots, callback settlement, and
// the reconciler that guarantees every claim reaches exactly one terminal
// outcome.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/pkg/errs"
	"github.com/sehatline/sehat_backend/pkg/locale"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	MedicationID  uuid.UUID
	ReminderTimes []string
	CustomMessage *string
	LanguageCode  string
	StartDate     time.Time
	EndDate       time.Time
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*model.Reminder, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Reminder, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Reminder, error)

	Pause(ctx context.Context, id uuid.UUID) (*model.Reminder, error)
	Resume(ctx context.Context, id uuid.UUID) (*model.Reminder, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Reminder, error)

	ListLogs(ctx context.Context, reminderID uuid.UUID, limit int) ([]model.DeliveryLog, error)
	// SettleCallback resolves a pending/unknown delivery log row from a
	// gateway delivery-status callback. Unrecognized message ids and
	// already-terminal rows are ignored.
	SettleCallback(ctx context.Context, gatewayMessageID, status string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type reminderService struct {
	db     *gorm.DB
	sms    *sms.Client
	logger *slog.Logger
}

func New(db *gorm.DB, smsClient *sms.Client, logger *slog.Logger) Service {
	return &reminderService{db: db, sms: smsClient, logger: logger}
}

func (s *reminderService) Create(ctx context.Context, req CreateRequest) (*model.Reminder, error) {
	if err := ValidateTimes(req.ReminderTimes); err != nil {
		return nil, errs.Validation("%v", err)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, errs.Validation("end date %s is before start date %s",
			req.EndDate.Format("2006-01-02"), req.StartDate.Format("2006-01-02"))
	}

	var med model.Medication
	err := s.db.WithContext(ctx).First(&med, "id = ?", req.MedicationID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	if !med.Active {
		return nil, ErrMedicationInactive
	}

	var patient model.Patient
	if err := s.db.WithContext(ctx).First(&patient, "id = ?", med.PatientID).Error; err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if patient.Phone == nil {
		return nil, ErrPatientNoPhone
	}

	lang := req.LanguageCode
	if lang == "" {
		lang = patient.LanguageCode
	}

	r := model.Reminder{
		PatientID:     med.PatientID,
		MedicationID:  req.MedicationID,
		ReminderTimes: datatypes.NewJSONSlice(SortTimes(req.ReminderTimes)),
		CustomMessage: req.CustomMessage,
		LanguageCode:  lang,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        model.ReminderActive,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	s.sendConfirmation(&r, &med, *patient.Phone)
	return &r, nil
}

// sendConfirmation is informational, best effort, and never logged as a
// delivery slot.
func (s *reminderService) sendConfirmation(r *model.Reminder, med *model.Medication, phone string) {
	msg, ok := locale.Render(locale.KeySetupConfirm, r.LanguageCode, locale.Params{
		MedicineName: med.Name,
		Dosage:       med.Dosage,
		Times:        strings.Join(r.ReminderTimes, ", "),
		DurationDays: int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1,
	})
	if !ok {
		return
	}
	if _, err := s.sms.Send(phone, msg); err != nil {
		s.logger.Warn("setup confirmation send failed",
			slog.String("reminder_id", r.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *reminderService) Get(ctx context.Context, id uuid.UUID) (*model.Reminder, error) {
	var r model.Reminder
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return &r, nil
}

func (s *reminderService) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Reminder, error) {
	var out []model.Reminder
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return out, nil
}

func (s *reminderService) Pause(ctx context.Context, id uuid.UUID) (*model.Reminder, error) {
	return s.transition(ctx, id, model.ReminderPaused)
}

func (s *reminderService) Resume(ctx context.Context, id uuid.UUID) (*model.Reminder, error) {
	return s.transition(ctx, id, model.ReminderActive)
}

func (s *reminderService) Cancel(ctx context.Context, id uuid.UUID) (*model.Reminder, error) {
	r, err := s.transition(ctx, id, model.ReminderCancelled)
	if err != nil {
		return nil, err
	}
	s.sendCancellation(ctx, r)
	return r, nil
}

// transition applies the state machine with a guarded update so two racing
// requests cannot both win the same edge.
func (s *reminderService) transition(ctx context.Context, id uuid.UUID, next model.ReminderStatus) (*model.Reminder, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(next) {
		return nil, errs.Validation("cannot transition reminder from %s to %s", r.Status, next)
	}

	res := s.db.WithContext(ctx).Model(&model.Reminder{}).
		Where("id = ? AND status = ?", id, r.Status).
		Update("status", next)
	if res.Error != nil {
		return nil, fmt.Errorf("transition reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.Conflict(fmt.Errorf("reminder %s changed state concurrently", id))
	}

	r.Status = next
	return r, nil
}

func (s *reminderService) sendCancellation(ctx context.Context, r *model.Reminder) {
	var med model.Medication
	if err := s.db.WithContext(ctx).First(&med, "id = ?", r.MedicationID).Error; err != nil {
		return
	}
	var patient model.Patient
	if err := s.db.WithContext(ctx).First(&patient, "id = ?", r.PatientID).Error; err != nil {
		return
	}
	if patient.Phone == nil {
		return
	}

	msg, ok := locale.Render(locale.KeyCancelled, r.LanguageCode, locale.Params{MedicineName: med.Name})
	if !ok {
		return
	}
	if _, err := s.sms.Send(*patient.Phone, msg); err != nil {
		s.logger.Warn("cancellation notice send failed",
			slog.String("reminder_id", r.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *reminderService) ListLogs(ctx context.Context, reminderID uuid.UUID, limit int) ([]model.DeliveryLog, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var out []model.DeliveryLog
	err := s.db.WithContext(ctx).
		Where("reminder_id = ?", reminderID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list delivery logs: %w", err)
	}
	return out, nil
}

func (s *reminderService) SettleCallback(ctx context.Context, gatewayMessageID, status string) error {
	outcome, settles := sms.CallbackOutcome(status)
	if !settles || gatewayMessageID == "" {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var log model.DeliveryLog
		err := tx.First(&log, "gateway_message_id = ?", gatewayMessageID).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find delivery log: %w", err)
		}
		if log.Outcome.Terminal() {
			return nil
		}
		return settleSlot(tx, &log, outcome, "gateway callback: "+status)
	})
}

// settleSlot moves a pending/unknown row to a terminal outcome and keeps the
// reminder counters in step, all inside the caller's transaction. The
// outcome guard on the update makes a second settler (a retried callback
// racing the reconciler) a no-op, so counters move at most once per slot.
// Synthetic report slots never touch the counters.
func settleSlot(tx *gorm.DB, log *model.DeliveryLog, outcome sms.Outcome, detail string) error {
	updates := map[string]any{"outcome": model.DeliveryOutcome(outcome)}
	if outcome == sms.OutcomeRejected && detail != "" {
		updates["failure_reason"] = detail
	}
	res := tx.Model(&model.DeliveryLog{}).
		Where("id = ? AND outcome IN ?", log.ID,
			[]model.DeliveryOutcome{model.OutcomePending, model.OutcomeUnknown}).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("settle delivery log: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	if log.ScheduledTime == syntheticReportSlot {
		return nil
	}

	counters := map[string]any{}
	switch outcome {
	case sms.OutcomeAccepted:
		counters["total_sent"] = gorm.Expr("total_sent + 1")
		counters["last_sent_at"] = time.Now()
	case sms.OutcomeRejected:
		counters["total_failed"] = gorm.Expr("total_failed + 1")
	default:
		return nil
	}
	err := tx.Model(&model.Reminder{}).
		Where("id = ?", log.ReminderID).
		Updates(counters).Error
	if err != nil {
		return fmt.Errorf("update reminder counters: %w", err)
	}
	return nil
}
