// Package apperr defines the error taxonomy shared by the engine and its hosts.
// Each error kind maps to one caller-visible outcome; classification is done
// with errors.As at the boundary.
package apperr

import (
	"errors"
	"fmt"
)

// ErrInsufficientMaterial is wrapped by NotFoundError when retrieval finds no
// chunks to ground a question on.
var ErrInsufficientMaterial = errors.New("insufficient material at this level")

// NotFoundError reports a missing document, question, snapshot or chunk set.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %q not found: %v", e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ValidationError reports malformed input, including malformed output from the
// text-generation capability.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransientIOError reports a store, cache or generation failure that survived
// bounded retries. Callers may retry the whole operation later.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s: temporarily unavailable: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// InternalInvariantError reports state that must never occur. It is raised
// instead of persisting inconsistent data.
type InternalInvariantError struct {
	Detail string
}

func (e *InternalInvariantError) Error() string {
	return "internal invariant violated: " + e.Detail
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Invalid builds a ValidationError for a named field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Transient builds a TransientIOError.
func Transient(op string, err error) error {
	return &TransientIOError{Op: op, Err: err}
}

// Invariant builds an InternalInvariantError with a formatted detail.
func Invariant(format string, args ...any) error {
	return &InternalInvariantError{Detail: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports whether err is or wraps a TransientIOError.
func IsTransient(err error) bool {
	var te *TransientIOError
	return errors.As(err, &te)
}

// IsInvariant reports whether err is or wraps an InternalInvariantError.
func IsInvariant(err error) bool {
	var ie *InternalInvariantError
	return errors.As(err, &ie)
}
