package adherence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/pkg/errs"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RecordDoseRequest struct {
	MedicationID uuid.UUID
	PatientID    uuid.UUID
	TakenDate    time.Time
	Taken        bool
	Notes        *string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// RecordDose upserts the single row for (medication, patient, day).
	// A second write for the same key updates it, never duplicates.
	RecordDose(ctx context.Context, req RecordDoseRequest) (*model.AdherenceRecord, error)
	// Rate computes the trailing-window adherence for a patient; nil means
	// no scheduled doses in the window. A non-nil scope restricts the
	// computation to one medication.
	Rate(ctx context.Context, patientID uuid.UUID, scope *uuid.UUID, windowDays int) (*float64, error)
	ListRecords(ctx context.Context, patientID uuid.UUID, windowDays int) ([]model.AdherenceRecord, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type adherenceService struct {
	db *gorm.DB
	nc *nats.Conn
}

func New(db *gorm.DB, nc *nats.Conn) Service {
	return &adherenceService{db: db, nc: nc}
}

func (s *adherenceService) RecordDose(ctx context.Context, req RecordDoseRequest) (*model.AdherenceRecord, error) {
	if req.TakenDate.IsZero() {
		return nil, errs.Validation("taken_date is required")
	}

	var med model.Medication
	err := s.db.WithContext(ctx).First(&med, "id = ?", req.MedicationID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	if med.PatientID != req.PatientID {
		return nil, errs.Validation("medication does not belong to patient")
	}

	rec := model.AdherenceRecord{
		MedicationID: req.MedicationID,
		PatientID:    req.PatientID,
		TakenDate:    DateOnly(req.TakenDate),
		Taken:        req.Taken,
		Notes:        req.Notes,
	}

	// Last-write-wins on the unique (medication, patient, day) key.
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "medication_id"}, {Name: "patient_id"}, {Name: "taken_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"taken", "notes", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("upsert adherence record: %w", err)
	}

	// Nudge the summary worker; the adherence windows just moved.
	if s.nc != nil {
		subject := fmt.Sprintf("sehat.patient.changed.%s", req.PatientID.String())
		_ = s.nc.Publish(subject, []byte(req.PatientID.String()))
	}
	return &rec, nil
}

func (s *adherenceService) Rate(ctx context.Context, patientID uuid.UUID, scope *uuid.UUID, windowDays int) (*float64, error) {
	return RateWith(s.db.WithContext(ctx), patientID, scope, windowDays, time.Now())
}

func (s *adherenceService) ListRecords(ctx context.Context, patientID uuid.UUID, windowDays int) ([]model.AdherenceRecord, error) {
	var records []model.AdherenceRecord
	err := s.db.WithContext(ctx).
		Where("patient_id = ? AND taken_date >= ?", patientID, WindowStart(time.Now(), windowDays)).
		Order("taken_date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list adherence records: %w", err)
	}
	return records, nil
}

// RateWith runs the adherence query on the given handle, so the summary
// materializer can compute both windows under its own transaction's read
// view. Only records whose owning medication is active count.
func RateWith(db *gorm.DB, patientID uuid.UUID, scope *uuid.UUID, windowDays int, today time.Time) (*float64, error) {
	if windowDays <= 0 {
		return nil, errs.Validation("window must be positive, got %d days", windowDays)
	}

	q := db.Model(&model.AdherenceRecord{}).
		Joins("JOIN medications ON medications.id = adherence_records.medication_id").
		Where("adherence_records.patient_id = ?", patientID).
		Where("medications.active = ?", true).
		Where("adherence_records.taken_date BETWEEN ? AND ?",
			WindowStart(today, windowDays), DateOnly(today))
	if scope != nil {
		q = q.Where("adherence_records.medication_id = ?", *scope)
	}

	var records []model.AdherenceRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query adherence window: %w", err)
	}
	return Compute(records), nil
}
