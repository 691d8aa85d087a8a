package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FreqEntry is one top-K frequency bucket (symptom or diagnosis).
type FreqEntry struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Summary is the denormalized per-patient aggregate. It is always derived
// by a full recompute from the source tables and upserted wholesale, keyed
// by the unique patient_id. Never hand-edited, never patched incrementally.
type Summary struct {
	ID                 uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID          uuid.UUID                      `gorm:"type:uuid;uniqueIndex;not null" json:"patient_id"`
	ConsultationCount  int                            `json:"consultation_count"`
	MedicationCount    int                            `json:"medication_count"`
	ScanCount          int                            `json:"scan_count"`
	ChatCount          int                            `json:"chat_count"`
	LastConsultationAt *time.Time                     `json:"last_consultation_at,omitempty"`
	LastScanAt         *time.Time                     `json:"last_scan_at,omitempty"`
	LastChatAt         *time.Time                     `json:"last_chat_at,omitempty"`
	Adherence7d        *float64                       `gorm:"column:adherence_7d" json:"adherence_7d,omitempty"`
	Adherence30d       *float64                       `gorm:"column:adherence_30d" json:"adherence_30d,omitempty"`
	CommonSymptoms     datatypes.JSONSlice[FreqEntry] `json:"common_symptoms,omitempty"`
	CommonDiagnoses    datatypes.JSONSlice[FreqEntry] `json:"common_diagnoses,omitempty"`
	RiskFactors        datatypes.JSONSlice[string]    `json:"risk_factors,omitempty"`
	RefreshedAt        time.Time                      `gorm:"index;not null" json:"refreshed_at"`
	CreatedAt          time.Time                      `json:"created_at"`
	UpdatedAt          time.Time                      `json:"updated_at"`
}

func (s *Summary) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &s.ID)
}
