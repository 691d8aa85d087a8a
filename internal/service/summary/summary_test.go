package summary

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sehatline/sehat_backend/internal/model"
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
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Refresh is a full recompute keyed by patient_id: running it twice leaves
// one row with the same derived values, never a duplicate.
func TestRefreshIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := model.Patient{Name: "Asha Rao", Active: true, LanguageCode: "en"}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	cons := model.Consultation{
		PatientID:   p.ID,
		Symptoms:    "fever, cough",
		Diagnosis:   "influenza",
		Urgency:     "high",
		ConsultedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&cons).Error; err != nil {
		t.Fatalf("seed consultation: %v", err)
	}

	svc := New(db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, err := svc.Refresh(ctx, p.ID)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	second, err := svc.Refresh(ctx, p.ID)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	var n int64
	if err := db.Model(&model.Summary{}).Count(&n).Error; err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d summary rows, want 1", n)
	}

	if second.ConsultationCount != first.ConsultationCount {
		t.Errorf("consultation_count changed: %d then %d", first.ConsultationCount, second.ConsultationCount)
	}
	if first.ConsultationCount != 1 {
		t.Errorf("consultation_count = %d, want 1", first.ConsultationCount)
	}
	if len(first.RiskFactors) != 1 || first.RiskFactors[0] != "influenza" {
		t.Errorf("risk_factors = %v, want [influenza]", first.RiskFactors)
	}
	if len(first.CommonSymptoms) != 2 {
		t.Errorf("common_symptoms = %v, want 2 entries", first.CommonSymptoms)
	}
}

func TestRefreshUnknownPatient(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	p := model.Patient{Name: "gone"}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	if err := db.Delete(&model.Patient{}, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("remove patient: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), p.ID); err == nil {
		t.Fatal("refresh of missing patient succeeded, want error")
	}
}
