package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PrescriptionScan records that an OCR ingest produced structured facts for
// a patient. Extraction quality is upstream's problem; the core only keeps
// the fact row so the summary can count and timestamp it.
type PrescriptionScan struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID uuid.UUID      `gorm:"type:uuid;index;not null" json:"patient_id"`
	Source    string         `gorm:"size:50" json:"source"` // upload, camera
	Extracted datatypes.JSON `json:"extracted,omitempty"`
	ScannedAt time.Time      `gorm:"index;not null" json:"scanned_at"`
	CreatedAt time.Time      `json:"created_at"`
}

func (p *PrescriptionScan) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &p.ID)
}

// ChatMessage is one turn of the assistant conversation, stored as a fact.
type ChatMessage struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID    uuid.UUID `gorm:"type:uuid;index;not null" json:"patient_id"`
	Role         string    `gorm:"size:20;not null" json:"role"` // user, assistant
	LanguageCode string    `gorm:"size:8;default:en" json:"language_code"`
	Content      string    `gorm:"type:text" json:"content"`
	SentAt       time.Time `gorm:"index;not null" json:"sent_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &c.ID)
}
