package consultation

import "github.com/sehatline/sehat_backend/pkg/errs"

var (
	ErrPatientNotFound      = errs.Validation("patient not found or inactive")
	ErrConsultationNotFound = errs.Validation("consultation not found")
	ErrMedicationNotFound   = errs.Validation("medication not found")
)
