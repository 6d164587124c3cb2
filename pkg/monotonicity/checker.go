// Package monotonicity checks that tracked numeric envelopes never regress.
//
// A tracked envelope is monotone-non-increasing unless explicitly marked
// otherwise, and every envelope may carry an absolute ceiling. Check reports
// every broken constraint in one pass so that an audit record can show the
// full extent of a bad proposal.
package monotonicity

import (
	"fmt"
	"math"
	"strings"
)

// Kind classifies a violation.
type Kind string

const (
	// KindMonotone means the value increased on a monotone-required envelope.
	KindMonotone Kind = "monotone"

	// KindCeiling means the value exceeds the envelope's absolute ceiling.
	KindCeiling Kind = "ceiling"
)

// NoCeiling is the ceiling of an envelope without an absolute limit.
var NoCeiling = math.Inf(1)

// Entry is one tracked envelope to check.
type Entry struct {
	Name             string
	Before           float64
	After            float64
	Ceiling          float64
	MonotoneRequired bool
}

// Violation is a single broken constraint.
type Violation struct {
	Kind    Kind    `json:"kind"`
	Name    string  `json:"name"`
	Before  float64 `json:"before"`
	After   float64 `json:"after"`
	Ceiling float64 `json:"ceiling,omitempty"`
}

// String renders the violation for logs and messages.
func (v Violation) String() string {
	if v.Kind == KindCeiling {
		return fmt.Sprintf("%s: %g exceeds ceiling %g", v.Name, v.After, v.Ceiling)
	}
	return fmt.Sprintf("%s: increased from %g to %g", v.Name, v.Before, v.After)
}

// Check validates every entry and returns all violations, in entry order.
// A monotone and a ceiling violation on the same entry are reported separately.
// A nil result means every entry holds.
func Check(entries []Entry) []Violation {
	var violations []Violation

	for _, e := range entries {
		if e.MonotoneRequired && e.After > e.Before {
			violations = append(violations, Violation{
				Kind:   KindMonotone,
				Name:   e.Name,
				Before: e.Before,
				After:  e.After,
			})
		}

		ceiling := e.Ceiling
		if math.IsNaN(ceiling) {
			ceiling = NoCeiling
		}
		if e.After > ceiling {
			violations = append(violations, Violation{
				Kind:    KindCeiling,
				Name:    e.Name,
				Before:  e.Before,
				After:   e.After,
				Ceiling: e.Ceiling,
			})
		}
	}

	return violations
}

// HasKind reports whether any violation is of kind k.
func HasKind(violations []Violation, k Kind) bool {
	for _, v := range violations {
		if v.Kind == k {
			return true
		}
	}
	return false
}

// ViolationError wraps a non-empty violation list as an error.
type ViolationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("monotonicity violated (%d): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// Validate is Check in error form: nil when every entry holds, otherwise a
// *ViolationError carrying all violations.
func Validate(entries []Entry) error {
	if v := Check(entries); len(v) > 0 {
		return &ViolationError{Violations: v}
	}
	return nil
}
