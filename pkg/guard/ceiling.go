package guard

import (
	"fmt"
	"math"
	"strings"
)

// CeilingGuard forbids any envelope above its effective ceiling and asks
// for degraded precision when a value lands inside the warn band below it.
type CeilingGuard struct{}

// Name implements Guard.
func (CeilingGuard) Name() string { return "ceiling" }

// Evaluate implements Guard.
func (g CeilingGuard) Evaluate(in *Input) Verdict {
	var over, near []string

	for _, e := range in.Envelopes {
		if math.IsInf(e.Ceiling, 1) {
			continue
		}
		switch {
		case e.After > e.Ceiling:
			over = append(over, fmt.Sprintf("%s=%g > %g", e.Name, e.After, e.Ceiling))
		case e.WarnBand > 0 && e.After >= e.Ceiling-e.WarnBand:
			near = append(near, fmt.Sprintf("%s=%g within %g of %g", e.Name, e.After, e.WarnBand, e.Ceiling))
		}
	}

	if len(over) > 0 {
		return verdict(g.Name(), Forbid, ReasonCeilingViolation, "ceiling exceeded: %s", strings.Join(over, ", "))
	}
	if len(near) > 0 {
		return verdict(g.Name(), DegradePrecision, ReasonNearCeiling, "near ceiling: %s", strings.Join(near, ", "))
	}
	return Allow(g.Name())
}
