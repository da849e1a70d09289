package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrValidation ErrorKind = "validation"
	ErrState      ErrorKind = "state"
	ErrConflict   ErrorKind = "conflict"
	ErrDuplicate  ErrorKind = "duplicate"
	ErrNotFound   ErrorKind = "not_found"
	ErrDependency ErrorKind = "dependency"
)

// DomainError classifies every failure a core operation can return. The
// surface layer maps Kind to a transport status; the core never formats
// for display.
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewValidationError(op, message string) *DomainError {
	return &DomainError{Kind: ErrValidation, Op: op, Message: message}
}

func NewStateError(op, message string) *DomainError {
	return &DomainError{Kind: ErrState, Op: op, Message: message}
}

func NewConflictError(op, message string) *DomainError {
	return &DomainError{Kind: ErrConflict, Op: op, Message: message}
}

func NewDuplicateError(op, message string) *DomainError {
	return &DomainError{Kind: ErrDuplicate, Op: op, Message: message}
}

func NewNotFoundError(op, message string) *DomainError {
	return &DomainError{Kind: ErrNotFound, Op: op, Message: message}
}

func NewDependencyError(op string, err error) *DomainError {
	return &DomainError{Kind: ErrDependency, Op: op, Message: "store unavailable", Err: err}
}

// KindOf extracts the classification from any error returned by a core
// operation. Unclassified errors report as dependency failures, the only
// retryable kind.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrDependency
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
