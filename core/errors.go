package core

import "github.com/pkg/errors"

// ErrPermissionDenied is returned when a Caller lacks the admin claim
// required by an admin-gated operation.
var ErrPermissionDenied = errors.New("permission denied")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError indicates a uniqueness violation detected before a write
// (duplicate email, duplicate name, duplicate natural key...).
type ConflictError struct {
	Err   error
	Field string
}

func NewConflictError(err error, field string) error {
	return &ConflictError{Err: err, Field: field}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

// IntegrityError indicates a referential-integrity violation: a delete
// blocked by existing references, or a create referencing a missing document.
type IntegrityError struct {
	Err error
}

func NewIntegrityError(err error) error {
	return &IntegrityError{Err: err}
}

func (err IntegrityError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func IsIntegrity(err error) bool {
	_, ok := errors.Cause(err).(*IntegrityError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
