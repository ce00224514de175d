package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable class of a business-rule failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindNotFound          ErrorKind = "NotFoundError"
	KindQuotaExceeded     ErrorKind = "QuotaExceededError"
	KindInsufficientFunds ErrorKind = "InsufficientFundsError"
	KindDuplicate         ErrorKind = "DuplicateError"
	KindArchived          ErrorKind = "ArchivedError"
	KindConflict          ErrorKind = "ConflictError"
)

// Error is a user-facing business-rule failure. Anything that is not an *Error
// is treated as an internal failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports malformed or missing input.
func NewValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return newError(KindNotFound, "%s %q not found", entity, id)
}

func NewQuotaExceededError(format string, args ...interface{}) *Error {
	return newError(KindQuotaExceeded, format, args...)
}

func NewInsufficientFundsError(format string, args ...interface{}) *Error {
	return newError(KindInsufficientFunds, format, args...)
}

func NewDuplicateError(format string, args ...interface{}) *Error {
	return newError(KindDuplicate, format, args...)
}

func NewArchivedError(format string, args ...interface{}) *Error {
	return newError(KindArchived, format, args...)
}

func NewConflictError(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// KindOf returns the kind of a business error, including wrapped ones.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind checks whether err is a business error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
