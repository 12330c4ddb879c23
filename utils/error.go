package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError reports bad input shape, length or range. Surfaced to the
// caller as a 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports that a pending confirmation already exists for the
// same (order, action) pair. PendingConfirmationId references the winner so
// callers can resolve or await it.
type ConflictError struct {
	PendingConfirmationId int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a pending confirmation already exists (id=%d)", e.PendingConfirmationId)
}

// StateError reports an action attempted on a confirmation or order that is
// not in the required state.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return e.Msg }

func NewStateError(format string, args ...any) *StateError {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

// ExpiredError reports that a confirmation's deadline has passed. The
// confirmation is transitioned to expired as a side effect of the read-time
// check, so the caller never observes it as still pending.
type ExpiredError struct {
	ConfirmationId int
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("confirmation %d has expired", e.ConfirmationId)
}

// ExecutionError wraps a failure of the action's side effect after approval
// was already recorded. Approval is not rolled back; the execution may be
// retried because executors are idempotent.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("approved but not yet executed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
