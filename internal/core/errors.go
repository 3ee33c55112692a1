package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("type must be income or expense")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidRange        = errors.New("end date is before start date")
	ErrMonthOutOfRange     = errors.New("month must be between 1 and 12")
	ErrYearOutOfRange      = errors.New("year must be between 2000 and 2100")
	ErrEmptyCategory       = errors.New("category is required")
	ErrCategoryTooLong     = errors.New("category cannot exceed 50 characters")
	ErrDescriptionTooLong  = errors.New("description cannot exceed 200 characters")
	ErrInvalidOwner        = errors.New("invalid owner id")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrInvalidPage         = errors.New("invalid pagination")
	ErrInvalidSort         = errors.New("invalid sort field")
	ErrInvalidRecordID     = errors.New("invalid id")
	ErrBudgetLimitRequired = errors.New("monthly limit is required")
)

// ValidationError reports malformed caller input for one field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError wraps err as a validation failure of field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Field, msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthorizationError means the request has no usable owner identity.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return ErrUnauthorized.Error()
	}
	return ErrUnauthorized.Error() + ": " + e.Reason
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// StoreError is a failure reported by a persistence backend.
// Callers pass it through untouched; nothing retries.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorization reports whether err is, or wraps, an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsStore reports whether err is, or wraps, a StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
