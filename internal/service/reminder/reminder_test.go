package reminder

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

// A retried gateway callback and a racing reconciler settle must move the
// outcome and the counters exactly once.
func TestSettleCallbackSettlesOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 8, 1, 0, 0, time.UTC)
	today := adherence.DateOnly(now)
	start := today.AddDate(0, 0, -9)
	end := today.AddDate(0, 0, 5)

	p := seedPatient(t, db)
	med := seedMedication(t, db, p.ID, true, start, end)
	r := seedActiveReminder(t, db, med, []string{"08:00"}, start, end)

	sid := "SM1234567890"
	claim := model.DeliveryLog{
		ReminderID:       r.ID,
		PatientID:        p.ID,
		ScheduledDate:    today,
		ScheduledTime:    "08:00",
		Outcome:          model.OutcomeUnknown,
		GatewayMessageID: &sid,
		SentAt:           now,
	}
	if err := db.Create(&claim).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	svc := New(db, &sms.Client{}, testLogger())
	if err := svc.SettleCallback(ctx, sid, "delivered"); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	if err := svc.SettleCallback(ctx, sid, "delivered"); err != nil {
		t.Fatalf("retried callback: %v", err)
	}

	// A reconciler holding the pre-callback snapshot loses to the guard.
	err := db.Transaction(func(tx *gorm.DB) error {
		return settleSlot(tx, &claim, sms.OutcomeRejected, "unsettled past reconcile cutoff")
	})
	if err != nil {
		t.Fatalf("racing settle: %v", err)
	}

	var log model.DeliveryLog
	if err := db.First(&log, "id = ?", claim.ID).Error; err != nil {
		t.Fatalf("reload claim: %v", err)
	}
	if log.Outcome != model.OutcomeAccepted {
		t.Errorf("outcome = %s, want %s", log.Outcome, model.OutcomeAccepted)
	}

	var rem model.Reminder
	if err := db.First(&rem, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if rem.TotalSent != 1 {
		t.Errorf("total_sent = %d, want 1", rem.TotalSent)
	}
	if rem.TotalFailed != 0 {
		t.Errorf("total_failed = %d, want 0", rem.TotalFailed)
	}
	if rem.LastSentAt == nil {
		t.Error("last_sent_at not set")
	}
}

func TestSettleCallbackIgnoresUnknownMessageID(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, &sms.Client{}, testLogger())
	if err := svc.SettleCallback(context.Background(), "SMnope", "delivered"); err != nil {
		t.Fatalf("SettleCallback: %v", err)
	}
}
