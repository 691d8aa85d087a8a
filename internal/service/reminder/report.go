package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/pkg/locale"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

// Reporter sends the weekly adherence SMS. Reports ride the same delivery
// log as dose reminders, under the synthetic slot time, so a retried run
// hits the claim conflict instead of texting the patient twice.
type Reporter struct {
	db     *gorm.DB
	sms    *sms.Client
	logger *slog.Logger
}

func NewReporter(db *gorm.DB, smsClient *sms.Client, logger *slog.Logger) *Reporter {
	return &Reporter{db: db, sms: smsClient, logger: logger}
}

// SendWeeklyReports covers every active patient holding at least one active
// reminder. Returns how many reports went out.
func (r *Reporter) SendWeeklyReports(ctx context.Context, now time.Time) (int, error) {
	var patients []model.Patient
	err := r.db.WithContext(ctx).
		Where("active = ? AND phone IS NOT NULL", true).
		Where("id IN (?)", r.db.Model(&model.Reminder{}).
			Select("patient_id").
			Where("status = ?", model.ReminderActive)).
		Find(&patients).Error
	if err != nil {
		return 0, fmt.Errorf("select report recipients: %w", err)
	}

	sent := 0
	for _, p := range patients {
		ok, err := r.sendOne(ctx, &p, now)
		if err != nil {
			r.logger.Warn("weekly report failed",
				slog.String("patient_id", p.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

func (r *Reporter) sendOne(ctx context.Context, p *model.Patient, now time.Time) (bool, error) {
	var anchor model.Reminder
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status = ?", p.ID, model.ReminderActive).
		Order("created_at ASC").
		First(&anchor).Error
	if err != nil {
		return false, fmt.Errorf("pick anchor reminder: %w", err)
	}

	taken, total, err := weeklyDoseCounts(r.db.WithContext(ctx), p.ID, now)
	if err != nil {
		return false, err
	}

	var message string
	if total == 0 {
		message, _ = locale.Render(locale.KeyWeeklyNoDoses, p.LanguageCode, locale.Params{})
	} else {
		rate, err := adherence.RateWith(r.db.WithContext(ctx), p.ID, nil, 7, now)
		if err != nil {
			return false, err
		}
		pct := 0.0
		if rate != nil {
			pct = *rate
		}
		message, _ = locale.Render(locale.KeyWeeklyReport, p.LanguageCode, locale.Params{
			AdherencePct: pct,
			TakenDoses:   taken,
			TotalDoses:   total,
		})
	}
	if message == "" {
		return false, nil
	}

	log := model.DeliveryLog{
		ReminderID:    anchor.ID,
		PatientID:     p.ID,
		ScheduledDate: adherence.DateOnly(now),
		ScheduledTime: syntheticReportSlot,
		Message:       message,
		Outcome:       model.OutcomePending,
		SentAt:        now,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   conflictColumns(),
		DoNothing: true,
	}).Create(&log)
	if res.Error != nil {
		return false, fmt.Errorf("claim report slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Already reported today.
		return false, nil
	}

	result, err := r.sms.Send(*p.Phone, message)
	if err != nil {
		result = sms.Result{Outcome: sms.OutcomeRejected, Detail: err.Error()}
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result.GatewayMessageID != "" {
			if err := tx.Model(&log).Update("gateway_message_id", result.GatewayMessageID).Error; err != nil {
				return err
			}
		}
		return settleSlot(tx, &log, result.Outcome, result.Detail)
	})
	if err != nil {
		return false, fmt.Errorf("settle report slot: %w", err)
	}
	return result.Outcome == sms.OutcomeAccepted, nil
}

func weeklyDoseCounts(db *gorm.DB, patientID uuid.UUID, now time.Time) (taken, total int, err error) {
	var records []model.AdherenceRecord
	err = db.
		Joins("JOIN medications ON medications.id = adherence_records.medication_id").
		Where("adherence_records.patient_id = ?", patientID).
		Where("medications.active = ?", true).
		Where("adherence_records.taken_date >= ? AND adherence_records.taken_date <= ?",
			adherence.WindowStart(now, 7), adherence.DateOnly(now)).
		Find(&records).Error
	if err != nil {
		return 0, 0, fmt.Errorf("weekly dose counts: %w", err)
	}

	for _, rec := range records {
		total++
		if rec.Taken {
			taken++
		}
	}
	return taken, total, nil
}
