package guard

import "sort"

// Outcome is the final decision for a proposal.
type Outcome string

const (
	OutcomeAllowed   Outcome = "allowed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDeferred  Outcome = "deferred"
	OutcomeForbidden Outcome = "forbidden"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAllowed, OutcomeRejected, OutcomeDeferred, OutcomeForbidden:
		return true
	}
	return false
}

// Aggregate is the combined result of a verdict set.
type Aggregate struct {
	Outcome     Outcome  `json:"outcome"`
	Degraded    bool     `json:"degraded,omitempty"`
	Mitigations []string `json:"mitigations,omitempty"`

	// ReasonCodes are the distinct reasons of all non-AllowFull verdicts, sorted.
	ReasonCodes []string `json:"reason_codes,omitempty"`
}

// Combine aggregates verdicts fail-closed. A verdict of unknown kind counts
// as Forbid. An empty verdict set is allowed.
func Combine(verdicts []Verdict) Aggregate {
	var (
		forbid, pause, degrade bool
		reasons                = map[string]struct{}{}
	)

	for _, v := range verdicts {
		switch v.Kind {
		case AllowFull:
			continue
		case DegradePrecision:
			degrade = true
		case PauseAndRest:
			pause = true
		default:
			forbid = true
		}
		if v.Reason != "" {
			reasons[v.Reason] = struct{}{}
		}
	}

	agg := Aggregate{ReasonCodes: sortedKeys(reasons)}
	switch {
	case forbid:
		agg.Outcome = OutcomeForbidden
	case pause:
		agg.Outcome = OutcomeDeferred
		agg.Mitigations = append(agg.Mitigations, MitigationPauseAndRest)
		if degrade {
			agg.Mitigations = append(agg.Mitigations, MitigationDegradePrecision)
		}
	default:
		agg.Outcome = OutcomeAllowed
		if degrade {
			agg.Degraded = true
			agg.Mitigations = append(agg.Mitigations, MitigationDegradePrecision)
		}
	}
	return agg
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
