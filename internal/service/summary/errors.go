package summary

import "github.com/sehatline/sehat_backend/pkg/errs"

var ErrPatientNotFound = errs.Validation("patient not found")
