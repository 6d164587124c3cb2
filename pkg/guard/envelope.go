package guard

import (
	"fmt"
	"strings"
)

// EnvelopeTighteningGuard forbids any monotone-required envelope whose
// proposed value is above the proposal's own before value.
type EnvelopeTighteningGuard struct{}

// Name implements Guard.
func (EnvelopeTighteningGuard) Name() string { return "envelope_tightening" }

// Evaluate implements Guard.
func (g EnvelopeTighteningGuard) Evaluate(in *Input) Verdict {
	var loosened []string
	for _, e := range in.Envelopes {
		if e.Monotone && e.After > e.Before {
			loosened = append(loosened, fmt.Sprintf("%s %g -> %g", e.Name, e.Before, e.After))
		}
	}
	if len(loosened) > 0 {
		return verdict(g.Name(), Forbid, ReasonEnvelopeLoosened, "envelopes loosened: %s", strings.Join(loosened, ", "))
	}
	return Allow(g.Name())
}
