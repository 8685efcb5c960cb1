package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrConflict       = errors.New("slot already reserved")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInfrastructure = errors.New("infrastructure unavailable")
	ErrNotFound       = errors.New("not found")
)

// ConflictError reports that the targeted slot identity is already claimed.
// Callers must re-query availability; a conflict is never retried as-is.
type ConflictError struct {
	ResourceID      string
	Date            Date
	StartMinute     int
	DurationMinutes int
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("slot already reserved: %s %s %s (%d min)",
		e.ResourceID, e.Date, FormatClock(e.StartMinute), e.DurationMinutes)
}

func (e ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidRequestError reports malformed input. It is surfaced immediately and not retried.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func InvalidRequest(field, reason string) InvalidRequestError {
	return InvalidRequestError{Field: field, Reason: reason}
}

func (e InvalidRequestError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// InfrastructureError wraps a store or broker failure. No partial state is guaranteed to
// have changed, so it is safe to retry with backoff.
type InfrastructureError struct {
	Op  string
	Err error
}

func Infrastructure(op string, err error) InfrastructureError {
	return InfrastructureError{Op: op, Err: err}
}

func (e InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e InfrastructureError) Unwrap() error {
	return e.Err
}

func (e InfrastructureError) Is(target error) bool {
	return target == ErrInfrastructure
}

// IsRetryable reports whether err may be retried with backoff.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidRequest) {
		return false
	}
	return errors.Is(err, ErrInfrastructure) ||
		errors.Is(err, context.DeadlineExceeded)
}
