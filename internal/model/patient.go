package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient is the root entity. Every other row is owned, directly or
// transitively, by a patient and is removed with it.
type Patient struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Age          int       `json:"age"`
	Gender       string    `gorm:"size:20" json:"gender"`
	Email        *string   `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	Phone        *string   `gorm:"size:20" json:"phone,omitempty"`
	LanguageCode string    `gorm:"size:8;default:en" json:"language_code"`
	Active       bool      `gorm:"default:true;index" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Consultations []Consultation `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"-"`
	Reminders     []Reminder     `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"-"`
	DeliveryLogs  []DeliveryLog  `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &p.ID)
}
