package adherence

import "errors"

var (
	ErrMedicationNotFound = errors.New("medication not found")
)
