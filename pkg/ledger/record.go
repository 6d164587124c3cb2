package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/monotonicity"
)

// Genesis is the PrevHash of the first record.
var Genesis = strings.Repeat("0", 64)

// EnvelopeState is one tracked envelope as evaluated.
type EnvelopeState struct {
	Name     string  `json:"name"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
	Baseline float64 `json:"baseline"`

	// Ceiling is nil when the envelope has no ceiling.
	Ceiling  *float64 `json:"ceiling,omitempty"`
	Monotone bool     `json:"monotone"`
}

// CeilingValue returns the ceiling, or +Inf when none.
func (e EnvelopeState) CeilingValue() float64 {
	if e.Ceiling == nil {
		return math.Inf(1)
	}
	return *e.Ceiling
}

// EnvelopeStates converts tracked envelopes to their recorded form.
func EnvelopeStates(tracked []guard.TrackedEnvelope) []EnvelopeState {
	if len(tracked) == 0 {
		return nil
	}
	states := make([]EnvelopeState, len(tracked))
	for i, t := range tracked {
		states[i] = EnvelopeState{
			Name:     t.Name,
			Before:   t.Before,
			After:    t.After,
			Baseline: t.Baseline,
			Monotone: t.Monotone,
		}
		if !math.IsInf(t.Ceiling, 1) {
			c := t.Ceiling
			states[i].Ceiling = &c
		}
	}
	return states
}

// Draft is the decision content of a record before the ledger assigns
// identity, position and signature.
type Draft struct {
	Subject    string `json:"subject"`
	Corridor   string `json:"corridor"`
	ProposalID string `json:"proposal_id"`

	// Evidence is the evidence bundle reference ("id#digest").
	Evidence string `json:"evidence"`

	// Policy is the policy profile reference ("name@version#digest").
	Policy string `json:"policy"`

	// Decision is the human-readable description of the proposed change.
	Decision string `json:"decision"`

	Envelopes []EnvelopeState `json:"envelopes,omitempty"`

	Outcome          guard.Outcome            `json:"outcome"`
	Degraded         bool                     `json:"degraded,omitempty"`
	Mitigations      []string                 `json:"mitigations,omitempty"`
	Verdicts         []guard.Verdict          `json:"verdicts,omitempty"`
	ReasonCodes      []string                 `json:"reason_codes,omitempty"`
	Violations       []monotonicity.Violation `json:"violations,omitempty"`
	ValidationErrors []string                 `json:"validation_errors,omitempty"`
}

// Validate checks the construction invariants of a record:
//   - the outcome is known
//   - an allowed record has no Forbid verdict, no violation, no envelope
//     above its ceiling and no loosened monotone envelope
//   - any envelope above its ceiling makes the record forbidden
//   - a forbidden record carries at least one reason code
//   - a rejected record carries at least one validation error
//   - only allowed records may be degraded
func (d *Draft) Validate() error {
	var problems []string
	addf := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !d.Outcome.Valid() {
		addf("unknown outcome %q", d.Outcome)
	}

	for _, e := range d.Envelopes {
		if !finite(e.Before) || !finite(e.After) || !finite(e.Baseline) ||
			(e.Ceiling != nil && !finite(*e.Ceiling)) {
			addf("envelope %s: non-finite value", e.Name)
		}
		if e.After > e.CeilingValue() && d.Outcome != guard.OutcomeForbidden {
			addf("envelope %s above ceiling but outcome is %s", e.Name, d.Outcome)
		}
		if d.Outcome == guard.OutcomeAllowed && e.Monotone && e.After > e.Baseline {
			addf("envelope %s loosened in an allowed record", e.Name)
		}
	}

	switch d.Outcome {
	case guard.OutcomeAllowed:
		if len(d.Violations) > 0 {
			addf("allowed record carries %d violations", len(d.Violations))
		}
		for _, v := range d.Verdicts {
			if v.Kind != guard.AllowFull && v.Kind != guard.DegradePrecision {
				addf("allowed record carries %s verdict from %s", v.Kind, v.Guard)
			}
		}
	case guard.OutcomeDeferred:
		for _, v := range d.Verdicts {
			if v.Kind == guard.Forbid {
				addf("deferred record carries forbid verdict from %s", v.Guard)
			}
		}
	case guard.OutcomeForbidden:
		if len(d.ReasonCodes) == 0 {
			addf("forbidden record has no reason code")
		}
	case guard.OutcomeRejected:
		if len(d.ValidationErrors) == 0 {
			addf("rejected record has no validation error")
		}
	}

	if d.Degraded && d.Outcome != guard.OutcomeAllowed {
		addf("degraded flag on %s record", d.Outcome)
	}

	if len(problems) > 0 {
		return &InvariantError{Problems: problems}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// normalize sorts and deduplicates reason codes.
func (d *Draft) normalize() {
	if len(d.ReasonCodes) == 0 {
		d.ReasonCodes = nil
		return
	}
	codes := append([]string(nil), d.ReasonCodes...)
	sort.Strings(codes)
	out := codes[:1]
	for _, r := range codes[1:] {
		if r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	d.ReasonCodes = out
}

// Record is one immutable ledger entry.
type Record struct {
	Sequence  int64     `json:"seq"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	Draft

	PrevHash  string `json:"prev_hash"`
	KeyID     string `json:"key_id"`
	Signature string `json:"signature,omitempty"`
}

// SigningPayload returns the canonical encoding without the signature.
func (r *Record) SigningPayload() ([]byte, error) {
	unsigned := *r
	unsigned.Signature = ""
	return json.Marshal(&unsigned)
}

// Encode returns the stored form of the record.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a stored record. Unknown fields are rejected.
func Decode(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after record")
	}
	return &r, nil
}

// Hash returns the hex SHA-256 of stored record bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
