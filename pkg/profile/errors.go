package profile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMatchingProfile is returned when no profile covers a corridor.
	ErrNoMatchingProfile = errors.New("no profile matches corridor jurisdictions")

	// ErrMissingCredentials is returned when a profile requires credentials
	// the corridor did not present.
	ErrMissingCredentials = errors.New("required credentials not presented")

	// ErrNotActive is returned when a supersession names a profile that is no
	// longer the active one.
	ErrNotActive = errors.New("profile is not the active profile")
)

// ProfileValidationError reports a profile that cannot be used.
type ProfileValidationError struct {
	// Profile is the profile name, if known
	Profile string

	// Source is where the document came from, if known
	Source string

	// Problems lists every failed check
	Problems []string

	// Cause is the underlying error (parse failure, sentinel)
	Cause error
}

// Error implements the error interface.
func (e *ProfileValidationError) Error() string {
	parts := []string{"profile validation error"}

	if e.Profile != "" {
		parts = append(parts, fmt.Sprintf("in profile %q", e.Profile))
	}
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("from %s", e.Source))
	}

	msg := strings.Join(parts, " ")
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ProfileValidationError) Unwrap() error {
	return e.Cause
}

// NewProfileValidationError creates a new ProfileValidationError.
func NewProfileValidationError(name string, cause error, problems ...string) *ProfileValidationError {
	return &ProfileValidationError{
		Profile:  name,
		Problems: problems,
		Cause:    cause,
	}
}

// Relaxation is one constraint a candidate profile loosens.
type Relaxation struct {
	Constraint string // e.g. "envelopes.risk_index.ceiling"
	Old        string
	New        string
}

// String renders the relaxation.
func (r Relaxation) String() string {
	return fmt.Sprintf("%s relaxed from %s to %s", r.Constraint, r.Old, r.New)
}

// PolicyDowngradeError reports a supersession that would relax the active profile.
type PolicyDowngradeError struct {
	Old         string // Reference of the active profile
	New         string // Reference of the rejected candidate
	Relaxations []Relaxation
	Cause       error
}

// Error implements the error interface.
func (e *PolicyDowngradeError) Error() string {
	msg := fmt.Sprintf("policy downgrade rejected: %s cannot supersede %s", e.New, e.Old)
	if len(e.Relaxations) > 0 {
		items := make([]string, len(e.Relaxations))
		for i, r := range e.Relaxations {
			items[i] = r.String()
		}
		msg += ": " + strings.Join(items, "; ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *PolicyDowngradeError) Unwrap() error {
	return e.Cause
}
