package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Consultation carries the structured outcome of one diagnostic session.
// The diagnosis text itself is produced upstream; the core only stores it.
type Consultation struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID        uuid.UUID      `gorm:"type:uuid;index;not null" json:"patient_id"`
	Symptoms         string         `gorm:"type:text" json:"symptoms"`
	Diagnosis        string         `gorm:"size:255" json:"diagnosis"`
	Urgency          string         `gorm:"size:20" json:"urgency"` // low, moderate, high, critical
	ConfidenceScore  float64        `json:"confidence_score"`
	PredictionMethod string         `gorm:"size:50" json:"prediction_method"`
	SessionData      datatypes.JSON `json:"session_data,omitempty"`
	ConsultedAt      time.Time      `gorm:"index;not null" json:"consulted_at"`
	CreatedAt        time.Time      `json:"created_at"`

	Medications []Medication `gorm:"foreignKey:ConsultationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Consultation) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &c.ID)
}
