package patient

import (
	"errors"

	"github.com/sehatline/sehat_backend/pkg/errs"
)

var (
	ErrPatientNotFound = errs.Validation("patient not found")
	ErrEmailTaken      = errs.Conflict(errors.New("email already registered"))
)
