// Package apperrors defines the error taxonomy of the gatepass workflow.
// Handlers map these onto HTTP statuses; services return them unwrapped or
// wrapped with %w so callers can test with errors.Is / errors.As.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict means a conditional transition affected zero rows: the
	// gatepass was already processed by a concurrent actor. Reported
	// distinctly from ErrNotFound so the caller can render "already
	// processed" instead of "not found".
	ErrConflict = errors.New("gatepass already processed")

	// ErrNotFound covers both a missing record and a record the actor is
	// not allowed to see. Ownership mismatches collapse into this on
	// purpose, to avoid leaking existence.
	ErrNotFound = errors.New("gatepass not found")

	// ErrForbidden means the actor's role does not permit the operation on
	// an otherwise visible record.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrNumberSpaceExhausted is returned when gatepass number allocation
	// gives up after the bounded retry count.
	ErrNumberSpaceExhausted = errors.New("gatepass number space exhausted")

	// ErrDuplicateNumber is the store-level signal for a unique-constraint
	// collision on gatepass_number. The service retries on it.
	ErrDuplicateNumber = errors.New("gatepass number already taken")
)

// ValidationError carries one message per violated input rule. No partial
// writes occur when one is returned.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Add appends a formatted violation message.
func (e *ValidationError) Add(format string, args ...interface{}) {
	e.Messages = append(e.Messages, fmt.Sprintf(format, args...))
}

// Any reports whether at least one violation was recorded.
func (e *ValidationError) Any() bool {
	return len(e.Messages) > 0
}

// Validation builds a single-message ValidationError.
func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Messages: []string{fmt.Sprintf(format, args...)}}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
