package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReminderStatus string

const (
	ReminderActive    ReminderStatus = "active"
	ReminderPaused    ReminderStatus = "paused"
	ReminderCompleted ReminderStatus = "completed"
	ReminderCancelled ReminderStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s ReminderStatus) Terminal() bool {
	return s == ReminderCompleted || s == ReminderCancelled
}

// CanTransitionTo encodes the reminder state machine:
// active → paused/completed/cancelled, paused → active/completed/cancelled.
func (s ReminderStatus) CanTransitionTo(next ReminderStatus) bool {
	if s.Terminal() || s == next {
		return false
	}
	switch s {
	case ReminderActive:
		return next == ReminderPaused || next == ReminderCompleted || next == ReminderCancelled
	case ReminderPaused:
		return next == ReminderActive || next == ReminderCompleted || next == ReminderCancelled
	}
	return false
}

// Reminder schedules daily SMS nudges for one medication. Counters are
// maintained inside the same transaction that settles the DeliveryLog
// outcome and are periodically recomputed from the log by the reconciler.
type Reminder struct {
	ID            uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID     uuid.UUID                  `gorm:"type:uuid;index;not null" json:"patient_id"`
	MedicationID  uuid.UUID                  `gorm:"type:uuid;index;not null" json:"medication_id"`
	ReminderTimes datatypes.JSONSlice[string] `gorm:"not null" json:"reminder_times"` // "HH:MM", ordered
	CustomMessage *string                    `gorm:"type:text" json:"custom_message,omitempty"`
	LanguageCode  string                     `gorm:"size:8;default:en" json:"language_code"`
	StartDate     time.Time                  `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time                  `gorm:"type:date;not null" json:"end_date"`
	Status        ReminderStatus             `gorm:"size:20;default:active;index" json:"status"`
	TotalSent     int                        `gorm:"default:0" json:"total_sent"`
	TotalFailed   int                        `gorm:"default:0" json:"total_failed"`
	LastSentAt    *time.Time                 `json:"last_sent_at,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`

	DeliveryLogs []DeliveryLog `gorm:"foreignKey:ReminderID;constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &r.ID)
}
