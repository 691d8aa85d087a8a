package reminder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/internal/service/adherence"
	"github.com/sehatline/sehat_backend/pkg/sms"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// One connection keeps the in-memory database alive across queries.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedPatient(t *testing.T, db *gorm.DB) *model.Patient {
	t.Helper()
	phone := "+919876543210"
	p := model.Patient{Name: "Asha Rao", Age: 52, Phone: &phone, LanguageCode: "en", Active: true}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	return &p
}

func seedMedication(t *testing.T, db *gorm.DB, patientID uuid.UUID, active bool, start, end time.Time) *model.Medication {
	t.Helper()
	m := model.Medication{
		ConsultationID: uuid.New(),
		PatientID:      patientID,
		Name:           "Metformin",
		Dosage:         "500mg",
		Active:         active,
		StartDate:      start,
		EndDate:        end,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed medication: %v", err)
	}
	// The active column defaults to true, so gorm drops a zero-value false
	// from the insert; persist it explicitly.
	if !active {
		if err := db.Model(&m).Update("active", false).Error; err != nil {
			t.Fatalf("seed medication active flag: %v", err)
		}
	}
	return &m
}

func seedActiveReminder(t *testing.T, db *gorm.DB, med *model.Medication, times []string, start, end time.Time) *model.Reminder {
	t.Helper()
	r := model.Reminder{
		PatientID:     med.PatientID,
		MedicationID:  med.ID,
		ReminderTimes: SortTimes(times),
		LanguageCode:  "en",
		StartDate:     start,
		EndDate:       end,
		Status:        model.ReminderActive,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("seed reminder: %v", err)
	}
	return &r
}

// Validity is inclusive on both ends, so a reminder whose end date is today
// must still dispatch today's slots.
func TestTickDispatchesLastDaySlot(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 31, 8, 0, 30, 0, time.UTC)
	today := adherence.DateOnly(now)
	start := today.AddDate(0, 0, -9)

	p := seedPatient(t, db)
	med := seedMedication(t, db, p.ID, true, start, today)
	r := seedActiveReminder(t, db, med, []string{"08:00"}, start, today)

	d := NewDispatcher(db, nil, &sms.Client{}, testLogger(), time.Minute, 0, 0)
	if err := d.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	var logs []model.DeliveryLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("load delivery logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d delivery logs, want 1", len(logs))
	}
	if logs[0].Outcome != model.OutcomeAccepted {
		t.Errorf("outcome = %s, want %s", logs[0].Outcome, model.OutcomeAccepted)
	}

	var fresh model.Reminder
	if err := db.First(&fresh, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if fresh.TotalSent != 1 {
		t.Errorf("total_sent = %d, want 1", fresh.TotalSent)
	}
}

// Two workers racing the same slot: the second claim hits the unique index
// and walks away without sending or touching the counters.
func TestDispatchSlotClaimConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 8, 0, 30, 0, time.UTC)
	today := adherence.DateOnly(now)
	start := today.AddDate(0, 0, -9)
	end := today.AddDate(0, 0, 5)

	p := seedPatient(t, db)
	med := seedMedication(t, db, p.ID, true, start, end)
	r := seedActiveReminder(t, db, med, []string{"08:00"}, start, end)

	d := NewDispatcher(db, nil, &sms.Client{}, testLogger(), time.Minute, 0, 0)
	slot := dueSlot{Date: today, Time: "08:00"}
	if err := d.dispatchSlot(ctx, r, slot, now); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := d.dispatchSlot(ctx, r, slot, now); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	var n int64
	if err := db.Model(&model.DeliveryLog{}).Count(&n).Error; err != nil {
		t.Fatalf("count delivery logs: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d delivery logs, want 1", n)
	}

	var fresh model.Reminder
	if err := db.First(&fresh, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if fresh.TotalSent+fresh.TotalFailed != 1 {
		t.Errorf("total_sent+total_failed = %d, want 1", fresh.TotalSent+fresh.TotalFailed)
	}
}

// A reminder for a medication that was deactivated or ran past its window
// must not fire; the tick pauses it instead of claiming the slot.
func TestTickPausesReminderForExpiredMedication(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 20, 8, 0, 30, 0, time.UTC)
	today := adherence.DateOnly(now)

	p := seedPatient(t, db)
	med := seedMedication(t, db, p.ID, true, today.AddDate(0, 0, -20), today.AddDate(0, 0, -10))
	r := seedActiveReminder(t, db, med, []string{"08:00"}, today.AddDate(0, 0, -20), today.AddDate(0, 0, 10))

	d := NewDispatcher(db, nil, &sms.Client{}, testLogger(), time.Minute, 0, 0)
	if err := d.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	var n int64
	if err := db.Model(&model.DeliveryLog{}).Count(&n).Error; err != nil {
		t.Fatalf("count delivery logs: %v", err)
	}
	if n != 0 {
		t.Fatalf("got %d delivery logs, want 0", n)
	}

	var fresh model.Reminder
	if err := db.First(&fresh, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if fresh.Status != model.ReminderPaused {
		t.Errorf("status = %s, want %s", fresh.Status, model.ReminderPaused)
	}
}

func TestTickPausesReminderForInactiveMedication(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 20, 8, 0, 30, 0, time.UTC)
	today := adherence.DateOnly(now)
	start := today.AddDate(0, 0, -5)
	end := today.AddDate(0, 0, 5)

	p := seedPatient(t, db)
	med := seedMedication(t, db, p.ID, false, start, end)
	r := seedActiveReminder(t, db, med, []string{"08:00"}, start, end)

	d := NewDispatcher(db, nil, &sms.Client{}, testLogger(), time.Minute, 0, 0)
	if err := d.Tick(context.Background(), now); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	var fresh model.Reminder
	if err := db.First(&fresh, "id = ?", r.ID).Error; err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if fresh.Status != model.ReminderPaused {
		t.Errorf("status = %s, want %s", fresh.Status, model.ReminderPaused)
	}
}
