package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryOutcome string

const (
	// OutcomePending marks a freshly claimed slot, before the gateway call.
	OutcomePending DeliveryOutcome = "pending"
	// OutcomeAccepted and OutcomeRejected are terminal gateway verdicts.
	OutcomeAccepted DeliveryOutcome = "accepted"
	OutcomeRejected DeliveryOutcome = "rejected"
	// OutcomeUnknown means the gateway call timed out; the slot is settled
	// later by the status callback or the reconciler, never by a resend.
	OutcomeUnknown DeliveryOutcome = "unknown"
	// OutcomeSkippedCap records a slot deferred by the daily send cap.
	OutcomeSkippedCap DeliveryOutcome = "skipped_cap"
)

// Terminal reports whether the outcome needs no further settlement.
func (o DeliveryOutcome) Terminal() bool {
	return o == OutcomeAccepted || o == OutcomeRejected || o == OutcomeSkippedCap
}

// DeliveryLog is one attempted send. The row doubles as the claim: the
// unique index on (reminder_id, scheduled_date, scheduled_time) means only
// one worker can insert it, however many race the same tick. Rows are
// append-only; the single permitted mutation is settling pending/unknown
// to a terminal outcome.
type DeliveryLog struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ReminderID       uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_delivery_slot;index;not null" json:"reminder_id"`
	PatientID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"patient_id"`
	ScheduledDate    time.Time       `gorm:"type:date;uniqueIndex:idx_delivery_slot;not null" json:"scheduled_date"`
	ScheduledTime    string          `gorm:"size:5;uniqueIndex:idx_delivery_slot;not null" json:"scheduled_time"` // "HH:MM"
	Message          string          `gorm:"type:text" json:"message"`
	Outcome          DeliveryOutcome `gorm:"size:20;default:pending;index" json:"outcome"`
	GatewayMessageID *string         `gorm:"size:64;index" json:"gateway_message_id,omitempty"`
	FailureReason    *string         `gorm:"type:text" json:"failure_reason,omitempty"`
	SentAt           time.Time       `gorm:"index;not null" json:"sent_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (d *DeliveryLog) BeforeCreate(tx *gorm.DB) error {
	return newID(tx, &d.ID)
}
