// Package consultation owns the clinical fact tables the summary is derived
// from: consultations, medications, prescription scans and chat messages.
// Every successful write publishes a patient-changed event so the summary
// worker can refresh the aggregate.
package consultation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sehatline/sehat_backend/internal/model"
	"github.com/sehatline/sehat_backend/pkg/errs"
)

// SubjectPatientChanged is the NATS subject prefix for source-table writes.
// The full subject carries the patient id: sehat.patient.changed.<uuid>.
const SubjectPatientChanged = "sehat.patient.changed"

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RecordConsultationRequest struct {
	PatientID        uuid.UUID
	Symptoms         string
	Diagnosis        string
	Urgency          string
	ConfidenceScore  float64
	PredictionMethod string
	SessionData      map[string]any
	ConsultedAt      *time.Time
}

type AddMedicationRequest struct {
	ConsultationID uuid.UUID
	Name           string
	Dosage         string
	Frequency      string
	Duration       string
	SideEffects    *string
	StartDate      time.Time
	EndDate        time.Time
}

type RecordScanRequest struct {
	PatientID uuid.UUID
	Source    string
	Extracted map[string]any
	ScannedAt *time.Time
}

type RecordChatRequest struct {
	PatientID    uuid.UUID
	Role         string
	LanguageCode string
	Content      string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	RecordConsultation(ctx context.Context, req RecordConsultationRequest) (*model.Consultation, error)
	GetConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	ListConsultations(ctx context.Context, patientID uuid.UUID, page, perPage int) ([]model.Consultation, error)

	AddMedication(ctx context.Context, req AddMedicationRequest) (*model.Medication, error)
	ListMedications(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]model.Medication, error)
	// DeactivateMedication marks the medication inactive and pauses every
	// active reminder attached to it, in one transaction.
	DeactivateMedication(ctx context.Context, id uuid.UUID) error

	RecordScan(ctx context.Context, req RecordScanRequest) (*model.PrescriptionScan, error)
	RecordChat(ctx context.Context, req RecordChatRequest) (*model.ChatMessage, error)
	ListChat(ctx context.Context, patientID uuid.UUID, limit int) ([]model.ChatMessage, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type consultationService struct {
	db *gorm.DB
	nc *nats.Conn
}

func New(db *gorm.DB, nc *nats.Conn) Service {
	return &consultationService{db: db, nc: nc}
}

var validUrgencies = map[string]bool{
	"low": true, "moderate": true, "high": true, "critical": true,
}

func (s *consultationService) RecordConsultation(ctx context.Context, req RecordConsultationRequest) (*model.Consultation, error) {
	if strings.TrimSpace(req.Symptoms) == "" {
		return nil, errs.Validation("symptoms are required")
	}
	urgency := req.Urgency
	if urgency == "" {
		urgency = "low"
	}
	if !validUrgencies[urgency] {
		return nil, errs.Validation("unknown urgency %q", req.Urgency)
	}

	consultedAt := time.Now()
	if req.ConsultedAt != nil {
		consultedAt = *req.ConsultedAt
	}

	c := model.Consultation{
		PatientID:        req.PatientID,
		Symptoms:         req.Symptoms,
		Diagnosis:        req.Diagnosis,
		Urgency:          urgency,
		ConfidenceScore:  req.ConfidenceScore,
		PredictionMethod: req.PredictionMethod,
		ConsultedAt:      consultedAt,
	}
	if req.SessionData != nil {
		data, err := json.Marshal(req.SessionData)
		if err != nil {
			return nil, errs.Validation("session data not serializable: %v", err)
		}
		c.SessionData = datatypes.JSON(data)
	}

	if err := s.requirePatient(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create consultation: %w", err)
	}

	s.publishChanged(req.PatientID)
	return &c, nil
}

func (s *consultationService) GetConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var c model.Consultation
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrConsultationNotFound
		}
		return nil, fmt.Errorf("get consultation: %w", err)
	}
	return &c, nil
}

func (s *consultationService) ListConsultations(ctx context.Context, patientID uuid.UUID, page, perPage int) ([]model.Consultation, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var out []model.Consultation
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("consulted_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return out, nil
}

func (s *consultationService) AddMedication(ctx context.Context, req AddMedicationRequest) (*model.Medication, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errs.Validation("medication name is required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, errs.Validation("end date %s is before start date %s",
			req.EndDate.Format("2006-01-02"), req.StartDate.Format("2006-01-02"))
	}

	consultation, err := s.GetConsultation(ctx, req.ConsultationID)
	if err != nil {
		return nil, err
	}

	m := model.Medication{
		ConsultationID: req.ConsultationID,
		PatientID:      consultation.PatientID,
		Name:           strings.TrimSpace(req.Name),
		Dosage:         req.Dosage,
		Frequency:      req.Frequency,
		Duration:       req.Duration,
		SideEffects:    req.SideEffects,
		Active:         true,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("create medication: %w", err)
	}

	s.publishChanged(consultation.PatientID)
	return &m, nil
}

func (s *consultationService) ListMedications(ctx context.Context, patientID uuid.UUID, activeOnly bool) ([]model.Medication, error) {
	q := s.db.WithContext(ctx).Where("patient_id = ?", patientID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var out []model.Medication
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return out, nil
}

func (s *consultationService) DeactivateMedication(ctx context.Context, id uuid.UUID) error {
	var patientID uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Medication
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrMedicationNotFound
			}
			return fmt.Errorf("get medication: %w", err)
		}
		patientID = m.PatientID

		if !m.Active {
			return nil
		}
		if err := tx.Model(&m).Update("active", false).Error; err != nil {
			return fmt.Errorf("deactivate medication: %w", err)
		}

		// Cascade-pause so the dispatcher stops picking up its slots.
		err := tx.Model(&model.Reminder{}).
			Where("medication_id = ? AND status = ?", id, model.ReminderActive).
			Update("status", model.ReminderPaused).Error
		if err != nil {
			return fmt.Errorf("pause reminders: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishChanged(patientID)
	return nil
}

func (s *consultationService) RecordScan(ctx context.Context, req RecordScanRequest) (*model.PrescriptionScan, error) {
	source := req.Source
	if source == "" {
		source = "upload"
	}
	scannedAt := time.Now()
	if req.ScannedAt != nil {
		scannedAt = *req.ScannedAt
	}

	scan := model.PrescriptionScan{
		PatientID: req.PatientID,
		Source:    source,
		ScannedAt: scannedAt,
	}
	if req.Extracted != nil {
		data, err := json.Marshal(req.Extracted)
		if err != nil {
			return nil, errs.Validation("extracted data not serializable: %v", err)
		}
		scan.Extracted = datatypes.JSON(data)
	}

	if err := s.requirePatient(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&scan).Error; err != nil {
		return nil, fmt.Errorf("create prescription scan: %w", err)
	}

	s.publishChanged(req.PatientID)
	return &scan, nil
}

func (s *consultationService) RecordChat(ctx context.Context, req RecordChatRequest) (*model.ChatMessage, error) {
	if req.Role != "user" && req.Role != "assistant" {
		return nil, errs.Validation("unknown chat role %q", req.Role)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, errs.Validation("chat content is required")
	}

	lang := req.LanguageCode
	if lang == "" {
		lang = "en"
	}

	msg := model.ChatMessage{
		PatientID:    req.PatientID,
		Role:         req.Role,
		LanguageCode: lang,
		Content:      req.Content,
		SentAt:       time.Now(),
	}

	if err := s.requirePatient(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("create chat message: %w", err)
	}

	s.publishChanged(req.PatientID)
	return &msg, nil
}

func (s *consultationService) ListChat(ctx context.Context, patientID uuid.UUID, limit int) ([]model.ChatMessage, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var out []model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return out, nil
}

func (s *consultationService) requirePatient(ctx context.Context, patientID uuid.UUID) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Patient{}).
		Where("id = ? AND active = ?", patientID, true).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("check patient: %w", err)
	}
	if n == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// publishChanged emits the refresh trigger. Best effort: the reconciler
// refreshes stale summaries even when the event is lost.
func (s *consultationService) publishChanged(patientID uuid.UUID) {
	if s.nc == nil {
		return
	}
	subject := fmt.Sprintf("%s.%s", SubjectPatientChanged, patientID.String())
	_ = s.nc.Publish(subject, []byte(patientID.String()))
}
