package evolution

import (
	"fmt"
	"strings"
)

// ValidationError describes one structural problem with a proposal.
type ValidationError struct {
	Field   string // Dotted path of the offending field
	Message string // What is wrong with it
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationErrors collects every problem found in a proposal.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return "invalid proposal: " + e[0].Error()
	}

	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid proposal (%d errors): %s", len(e), strings.Join(msgs, "; "))
}

// Strings returns the messages of all errors.
func (e ValidationErrors) Strings() []string {
	out := make([]string, len(e))
	for i, err := range e {
		out[i] = err.Error()
	}
	return out
}

// Err returns nil when there are no errors.
func (e ValidationErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
