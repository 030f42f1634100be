package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes shared by every layer of the service.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeScheduleConflict = "SCHEDULE_CONFLICT"
	CodeInvalidState     = "INVALID_STATE"
	CodeForbidden        = "FORBIDDEN"
)

// Sentinels for errors.Is matching against a DomainError's code.
var (
	ErrValidation       = &DomainError{Code: CodeValidation}
	ErrNotFound         = &DomainError{Code: CodeNotFound}
	ErrConflict         = &DomainError{Code: CodeConflict}
	ErrScheduleConflict = &DomainError{Code: CodeScheduleConflict}
	ErrInvalidState     = &DomainError{Code: CodeInvalidState}
	ErrForbidden        = &DomainError{Code: CodeForbidden}
)

// DomainError is a business-level error carrying a stable code and, for
// validation failures, a field-level message list.
type DomainError struct {
	Code    string
	Message string
	Details []string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewValidationError creates a validation error with a single message.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: message}
}

// NewFieldValidationError creates a validation error listing every offending field.
func NewFieldValidationError(details []string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: "validation failed", Details: details}
}

// NewNotFoundError creates a not-found error for the given entity and identifier.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewConflictError creates a conflict error (concurrent modification, duplicate key).
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: message}
}

// NewScheduleConflictError reports a double-booked vehicle or crew member.
func NewScheduleConflictError(details []string) *DomainError {
	return &DomainError{Code: CodeScheduleConflict, Message: "schedule conflict", Details: details}
}

// NewInvalidStateError reports an operation that is illegal in the current state.
func NewInvalidStateError(current, target string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("cannot transition from %q to %q", current, target),
	}
}

// NewInvalidOperationError reports an illegal operation with a free-form reason.
func NewInvalidOperationError(reason string) *DomainError {
	return &DomainError{Code: CodeInvalidState, Message: reason}
}

// NewForbiddenError creates an authorization error.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: message}
}
