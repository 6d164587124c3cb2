package guard

import (
	"fmt"

	"mercator-hq/warden/pkg/evolution"
	"mercator-hq/warden/pkg/profile"
)

// Kind is the severity of a verdict.
type Kind string

const (
	AllowFull        Kind = "allow_full"
	DegradePrecision Kind = "degrade_precision"
	PauseAndRest     Kind = "pause_and_rest"
	Forbid           Kind = "forbid"
)

// Severity orders verdict kinds from AllowFull (0) to Forbid (3).
func (k Kind) Severity() int {
	switch k {
	case AllowFull:
		return 0
	case DegradePrecision:
		return 1
	case PauseAndRest:
		return 2
	}
	// Unknown kinds are treated as Forbid.
	return 3
}

// KindForAction maps a policy action to the verdict kind it produces.
func KindForAction(a profile.Action) Kind {
	switch a {
	case profile.ActionDegrade:
		return DegradePrecision
	case profile.ActionPause:
		return PauseAndRest
	}
	return Forbid
}

// Verdict is the result of one guard.
type Verdict struct {
	Guard   string `json:"guard"`
	Kind    Kind   `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// Allow returns an AllowFull verdict for guard.
func Allow(guard string) Verdict {
	return Verdict{Guard: guard, Kind: AllowFull}
}

func verdict(guard string, kind Kind, reason, format string, args ...interface{}) Verdict {
	return Verdict{Guard: guard, Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Guard is a pure, read-only evaluator. Implementations must not mutate the
// input and must not depend on other guards.
type Guard interface {
	Name() string
	Evaluate(in *Input) Verdict
}

// PriorState exposes the last committed value of each envelope per subject.
type PriorState interface {
	Last(subject, envelope string) (float64, bool)
}

// NoPrior is a PriorState without history.
type NoPrior struct{}

// Last always reports no value.
func (NoPrior) Last(string, string) (float64, bool) { return 0, false }

// TrackedEnvelope is a proposal envelope resolved against the profile and
// prior state.
type TrackedEnvelope struct {
	Name     string
	Kind     profile.EnvelopeKind
	Before   float64
	After    float64
	Ceiling  float64 // +Inf when none
	WarnBand float64
	Monotone bool

	// Baseline is the value monotonicity is checked against: the lower of
	// the proposal's before value and the last committed value.
	Baseline float64
	Prior    float64
	HasPrior bool
}

// Input is everything a guard may read.
type Input struct {
	Proposal  *evolution.Proposal
	Profile   *profile.Profile
	Envelopes []TrackedEnvelope
}

// NewInput resolves every proposal envelope against the profile and prior
// state. Envelopes the profile does not name are tracked monotone-required
// without a ceiling.
func NewInput(p *evolution.Proposal, prof *profile.Profile, prior PriorState) *Input {
	if prior == nil {
		prior = NoPrior{}
	}

	envelopes := make([]TrackedEnvelope, 0, len(p.Envelopes))
	for _, pair := range p.Envelopes {
		rule, known := prof.Rule(pair.Name)

		te := TrackedEnvelope{
			Name:     pair.Name,
			Kind:     rule.Kind,
			Before:   pair.Before,
			After:    pair.After,
			Ceiling:  prof.EffectiveCeiling(pair.Name, p.ModuleClass),
			WarnBand: rule.WarnBandValue(),
			Monotone: !known || rule.MonotoneRequired(),
			Baseline: pair.Before,
		}
		if v, ok := prior.Last(p.Subject, pair.Name); ok {
			te.Prior, te.HasPrior = v, true
			if v < te.Baseline {
				te.Baseline = v
			}
		}
		envelopes = append(envelopes, te)
	}

	return &Input{Proposal: p, Profile: prof, Envelopes: envelopes}
}
