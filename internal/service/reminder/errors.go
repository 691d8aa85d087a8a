package reminder

import "github.com/sehatline/sehat_backend/pkg/errs"

var (
	ErrReminderNotFound   = errs.Validation("reminder not found")
	ErrMedicationNotFound = errs.Validation("medication not found")
	ErrMedicationInactive = errs.Validation("medication is inactive")
	ErrPatientNoPhone     = errs.Validation("patient has no phone number on file")
)
