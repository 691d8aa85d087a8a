// Package errs classifies failures so callers can decide between reject,
// treat-as-handled, retry-with-backoff, and log-terminal.
package errs

import (
	"context"
	"errors"
	"fmt"
)

type Kind int

const (
	// KindValidation: malformed input; reject, never retry.
	KindValidation Kind = iota
	// KindConflict: uniqueness or claim violation; expected under
	// concurrency, the caller treats it as already handled.
	KindConflict
	// KindTransient: storage/network timeout; retry with backoff.
	KindTransient
	// KindGateway: delivery rejected by the SMS gateway; terminal for
	// that slot.
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindGateway:
		return "gateway"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

func Conflict(err error) error {
	return &Error{Kind: KindConflict, Err: err}
}

func Transient(err error) error {
	return &Error{Kind: KindTransient, Err: err}
}

func Gateway(err error) error {
	return &Error{Kind: KindGateway, Err: err}
}

// KindOf extracts the classification from an error chain. Context
// deadline/cancellation counts as transient.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient, true
	}
	return 0, false
}

func IsConflict(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindConflict
}

func IsValidation(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindValidation
}

func IsTransient(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindTransient
}
