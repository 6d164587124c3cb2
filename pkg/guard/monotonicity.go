package guard

import (
	"strings"

	"mercator-hq/warden/pkg/monotonicity"
)

// Entries converts tracked envelopes to monotonicity checker entries. The
// baseline, not the raw before value, is checked so that a subject cannot
// climb back up in small steps across proposals.
func Entries(envelopes []TrackedEnvelope) []monotonicity.Entry {
	entries := make([]monotonicity.Entry, len(envelopes))
	for i, e := range envelopes {
		entries[i] = monotonicity.Entry{
			Name:             e.Name,
			Before:           e.Baseline,
			After:            e.After,
			Ceiling:          e.Ceiling,
			MonotoneRequired: e.Monotone,
		}
	}
	return entries
}

// MonotonicityGuard forbids proposals the monotonicity checker rejects.
type MonotonicityGuard struct{}

// Name implements Guard.
func (MonotonicityGuard) Name() string { return "monotonicity" }

// Evaluate implements Guard.
func (g MonotonicityGuard) Evaluate(in *Input) Verdict {
	violations := monotonicity.Check(Entries(in.Envelopes))
	if len(violations) == 0 {
		return Allow(g.Name())
	}

	reason := ReasonCeilingViolation
	if monotonicity.HasKind(violations, monotonicity.KindMonotone) {
		reason = ReasonEnvelopeLoosened
	}

	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return verdict(g.Name(), Forbid, reason, "%s", strings.Join(msgs, "; "))
}
