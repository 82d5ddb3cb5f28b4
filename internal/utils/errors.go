package utils

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable failure class surfaced to callers when a
// hard dependency fails.
type ErrorKind string

const (
	KindTelemetryUnavailable ErrorKind = "telemetry-unavailable"
	KindRetrievalUnavailable ErrorKind = "retrieval-unavailable"
	KindReasoningUnavailable ErrorKind = "reasoning-unavailable"
	KindNotificationFailed   ErrorKind = "notification-failed"
	KindInternal             ErrorKind = "internal"
)

// AppError wraps an operation, a failure kind, a human-facing message, and the
// underlying error.
type AppError struct {
	Op   string
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op string, kind ErrorKind, msg string, err error) error {
	return &AppError{Op: op, Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the ErrorKind from an error chain, defaulting to internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	return KindInternal
}
