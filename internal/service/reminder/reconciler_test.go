package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/internal/service/adherence"
)

// backdate rewrites updated_at without triggering the auto-timestamp, the
// way a row left behind by a dead worker would look.
func backdate(t *testing.T, db *gorm.DB, logID uuid.UUID, to time.Time) {
	t.Helper()
	err := db.Model(&model.DeliveryLog{}).
		Where("id = ?", logID).
		UpdateColumn("updated_at", to).Error
	if err != nil {
		t.Fatalf("backdate delivery log: %v", err)
	}
}

// Claims stuck before the gateway call (pending) and after it (unknown)
// both settle as rejected once they age past the TTL; fresh ones are left
// for the callback.
func TestReconcilerSettlesStaleClaims(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	today := adherence.DateOnly(now)
	start := today.AddDate(0, 0, -9)
	end := today.AddDate(0, 0, 5)

	p := seedPatient(t, db)
	med := seedMedication(t, db, p.ID, true, start, end)
	r := seedActiveReminder(t, db, med, []string{"08:00", "13:00", "20:00"}, start, end)

	mk := func(slot string, outcome model.DeliveryOutcome) *model.DeliveryLog {
		log := model.DeliveryLog{
			ReminderID:    r.ID,
			PatientID:     p.ID,
			ScheduledDate: today.AddDate(0, 0, -3),
			ScheduledTime: slot,
			Outcome:       outcome,
			SentAt:        now.AddDate(0, 0, -3),
		}
		if err := db.Create(&log).Error; err != nil {
			t.Fatalf("seed delivery log: %v", err)
		}
		return &log
	}

	stalePending := mk("08:00", model.OutcomePending)
	staleUnknown := mk("13:00", model.OutcomeUnknown)
	freshUnknown := mk("20:00", model.OutcomeUnknown)
	backdate(t, db, stalePending.ID, now.Add(-72*time.Hour))
	backdate(t, db, staleUnknown.ID, now.Add(-72*time.Hour))
	backdate(t, db, freshUnknown.ID, now.Add(-time.Hour))

	rec := NewReconciler(db, testLogger(), 24*time.Hour)
	if err := rec.Run(ctx, now); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, id := range []uuid.UUID{stalePending.ID, staleUnknown.ID} {
		var log model.DeliveryLog
		if err := db.First(&log, "id = ?", id).Error; err != nil {
			t.Fatalf("reload delivery log: %v", err)
		}
		if log.Outcome != model.OutcomeRejected {
			t.Errorf("stale claim outcome = %s, want %s", log.Outcome, model.OutcomeRejected)
		}
		if log.FailureReason == nil {
			t.Error("stale claim has no failure reason")
		}
	}

	var fresh model.DeliveryLog
	if err := db.First(&fresh, "id = ?", freshUnknown.ID).Error; err != nil {
		t.Fatalf("reload fresh claim: %v", err)
	}
	if fresh.Outcome != model.OutcomeUnknown {
		t.Errorf("fresh claim outcome = %s, want %s", fresh.Outcome, model.OutcomeUnknown)
	}

	var rem model.Reminder
	if err := db.First(&rem, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if rem.TotalFailed != 2 {
		t.Errorf("total_failed = %d, want 2", rem.TotalFailed)
	}
}

func TestReconcilerRepairsCounterDrift(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	today := adherence.DateOnly(now)
	start := today.AddDate(0, 0, -9)
	end := today.AddDate(0, 0, 5)

	p := seedPatient(t, db)
	med := seedMedication(t, db, p.ID, true, start, end)
	r := seedActiveReminder(t, db, med, []string{"08:00", "13:00", "20:00"}, start, end)

	for slot, outcome := range map[string]model.DeliveryOutcome{
		"08:00": model.OutcomeAccepted,
		"13:00": model.OutcomeAccepted,
		"20:00": model.OutcomeRejected,
	} {
		log := model.DeliveryLog{
			ReminderID:    r.ID,
			PatientID:     p.ID,
			ScheduledDate: today,
			ScheduledTime: slot,
			Outcome:       outcome,
			SentAt:        now,
		}
		if err := db.Create(&log).Error; err != nil {
			t.Fatalf("seed delivery log: %v", err)
		}
	}

	err := db.Model(&model.Reminder{}).Where("id = ?", r.ID).
		UpdateColumn("total_sent", 7).Error
	if err != nil {
		t.Fatalf("inject drift: %v", err)
	}

	rec := NewReconciler(db, testLogger(), 24*time.Hour)
	if err := rec.Run(ctx, now); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var rem model.Reminder
	if err := db.First(&rem, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if rem.TotalSent != 2 || rem.TotalFailed != 1 {
		t.Errorf("counters = (%d, %d), want (2, 1)", rem.TotalSent, rem.TotalFailed)
	}
}
