// internal/app/system/faults/faults.go

// Package faults defines the error kinds shared across TierHub's core.
// Errors are local-first: nothing here is retried or swallowed; callers
// decide presentation. Traversal and graph errors live with their engines
// (internal/app/system/walk, internal/app/system/qgraph).
package faults

import (
	"errors"
	"fmt"
)

// AuthorizationError is a permission-matrix denial. It is surfaced to the
// caller unchanged.
type AuthorizationError struct {
	Permission string // the permission verb that was denied
	Role       string // the role the actor held, for diagnostics
}

func (e *AuthorizationError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("not permitted: %s", e.Permission)
	}
	return fmt.Sprintf("not permitted: %s (role %s)", e.Permission, e.Role)
}

// ValidationError is a violated data invariant, such as adding a user who
// is already a project participant.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StateError means the operation is not allowed in the entity's current
// state, such as opening an already-underway work package.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return e.Msg }

// Statef builds a StateError from a format string.
func Statef(format string, args ...any) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError is a transactional serialisation conflict. It is retriable
// by the caller; the core never retries internally.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsState reports whether err is a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsConflict reports whether err is a retriable ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
