package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalService = errors.New("external service error")
	ErrPrecondition    = errors.New("precondition not met")
	ErrStateConflict   = errors.New("state conflict")
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error describes a failure that re-running the
// same step may resolve. Precondition, validation, and not-found failures need
// a different input first.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrPrecondition), errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// DiagnosticError carries the operator-facing message recorded on an entity
// when a step fails. The message is the only triage artifact, so it keeps
// sub-error detail rather than a generic summary.
type DiagnosticError struct {
	Marker  error
	Message string
	Err     error
}

func (e *DiagnosticError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DiagnosticError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Marker != nil {
		errs = append(errs, e.Marker)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Diagnose tags err with marker and the message to record on the entity.
func Diagnose(marker error, message string, err error) error {
	if marker == nil {
		marker = ErrExternalService
	}
	return &DiagnosticError{Marker: marker, Message: strings.TrimSpace(message), Err: err}
}

// DiagnosticMessage returns the message a failed step should record: the
// diagnostic message followed by its cause. Errors without a diagnostic fall
// back to their full text.
func DiagnosticMessage(err error) string {
	if err == nil {
		return ""
	}
	var diag *DiagnosticError
	if errors.As(err, &diag) && diag.Message != "" {
		if diag.Err != nil && diag.Err != diag.Marker {
			if cause := causeMessage(diag.Err); cause != "" {
				return diag.Message + ": " + cause
			}
		}
		return diag.Message
	}
	return strings.TrimSpace(err.Error())
}

var markers = []error{ErrExternalService, ErrPrecondition, ErrStateConflict, ErrValidation, ErrNotFound, ErrTimeout}

// causeMessage renders err without the leading sentinel text Wrap adds.
func causeMessage(err error) string {
	text := strings.TrimSpace(err.Error())
	for _, marker := range markers {
		if rest, ok := strings.CutPrefix(text, marker.Error()+": "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return text
}

// IsTimeout reports whether err describes a deadline or timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
