// Package model defines the ledger store schema: the adherence ledger,
// reminder scheduling state, and the derived per-patient summary.
package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllModels lists every table in migration order (parents first).
func AllModels() []any {
	return []any{
		&Patient{},
		&Consultation{},
		&Medication{},
		&AdherenceRecord{},
		&PrescriptionScan{},
		&ChatMessage{},
		&Reminder{},
		&DeliveryLog{},
		&Summary{},
	}
}

func newID(tx *gorm.DB, id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	v7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v7
	return nil
}
