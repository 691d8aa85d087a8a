package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Medication is a prescribed medicine with a validity window. Deactivating
// or expiring a medication cascade-pauses its reminders; the storage layer
// does not enforce that on its own, the consultation service does.
type Medication struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConsultationID uuid.UUID `gorm:"type:uuid;index;not null" json:"consultation_id"`
	PatientID      uuid.UUID `gorm:"type:uuid;index;not null" json:"patient_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Dosage         string    `gorm:"size:100" json:"dosage"`
	Frequency      string    `gorm:"size:100" json:"frequency"`
	Duration       string    `gorm:"size:100" json:"duration"`
	SideEffects    *string   `gorm:"type:text" json:"side_effects,omitempty"`
	Active         bool      `gorm:"default:true;index" json:"active"`
	StartDate      time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate        time.Time `gorm:"type:date;not null" json:"end_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	AdherenceRecords []AdherenceRecord `gorm:"foreignKey:MedicationID;constraint:OnDelete:CASCADE" json:"-"`
	Reminders        []Reminder        `gorm:"foreignKey:MedicationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *Medication) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &m.ID)
}

// AdherenceRecord marks whether one dose was taken on one calendar day.
// The composite unique index makes the second write for the same
// (medication, patient, day) an update, never a duplicate.
type AdherenceRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MedicationID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_adherence_slot;not null" json:"medication_id"`
	PatientID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_adherence_slot;index;not null" json:"patient_id"`
	TakenDate    time.Time `gorm:"type:date;uniqueIndex:idx_adherence_slot;not null" json:"taken_date"`
	Taken        bool      `gorm:"default:false" json:"taken"`
	Notes        *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *AdherenceRecord) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &r.ID)
}
