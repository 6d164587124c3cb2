package profile

import (
	"sort"
	"time"
)

// Standard envelope names used by the built-in profiles.
const (
	EnvelopeRiskIndex      = "risk_index"
	EnvelopeRightsIndex    = "rights_index"
	EnvelopeDutyCycle      = "duty_cycle"
	EnvelopeEffectSize     = "effect_size"
	EnvelopeSessionMinutes = "session_minutes"
)

// ModuleClassBCI is the module class for brain-computer interface modules.
const ModuleClassBCI = "bci"

// RiskCeiling is the hard risk-of-harm ceiling shared by the built-in profiles.
const RiskCeiling = 0.30

// DefaultMinimumRights is the non-derogable rights floor of every built-in profile.
var DefaultMinimumRights = []string{
	"right_to_consent",
	"right_to_abort",
	"right_to_identity",
	"right_to_privacy",
}

var builtins = map[string]func() *Profile{
	"eu-neurorights":    euNeurorights,
	"chile-neurorights": chileNeurorights,
	"phoenix-medical":   phoenixMedical,
}

// BuiltinNames returns the names of the built-in profiles.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh, finalized copy of a built-in profile.
func Builtin(name string, opts Options) (*Profile, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, NewProfileValidationError(name, ErrNoMatchingProfile, "unknown built-in profile")
	}
	if opts.Source == "" {
		opts.Source = "builtin"
	}
	return Finalize(build(), opts)
}

func ptr[T any](v T) *T {
	return &v
}

func baseProfile(name, authority string, jurisdictions ...string) *Profile {
	return &Profile{
		SchemaVersion: SchemaVersion,
		Name:          name,
		Version:       "1.0.0",
		Authority:     authority,
		EffectiveDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Jurisdictions: jurisdictions,
		MinimumRights: append([]string(nil), DefaultMinimumRights...),
		Envelopes: map[string]EnvelopeRule{
			EnvelopeRiskIndex:      {Kind: KindRisk, Ceiling: ptr(RiskCeiling)},
			EnvelopeRightsIndex:    {Kind: KindRights},
			EnvelopeEffectSize:     {Kind: KindRisk, Ceiling: ptr(0.5)},
			EnvelopeDutyCycle:      {Kind: KindResource, Ceiling: ptr(0.5), Monotone: ptr(false)},
			EnvelopeSessionMinutes: {Kind: KindResource, Ceiling: ptr(60.0), Monotone: ptr(false)},
		},
		ModuleClasses: map[string]ModuleClassLimits{
			ModuleClassBCI: {Ceilings: map[string]float64{EnvelopeRiskIndex: 0.25}},
		},
		Consent: ConsentPolicy{
			RequiredForFullAllow: true,
			OnPending:            ActionDegrade,
			OnConditional:        ActionDegrade,
		},
		CustomConstraints: []CustomConstraint{
			{Name: "no-coercive-uptake", Predicate: PredicateNoCoerciveUptake, Verdict: ActionForbid, ReasonCode: "COERCIVE_UPTAKE"},
		},
	}
}

func euNeurorights() *Profile {
	p := baseProfile("eu-neurorights", "EU AI Act", "EU")
	p.ForbiddenCapabilities = []string{"subconscious_targeting", "inner_state_governance"}
	p.ModuleClasses[ModuleClassBCI].Ceilings[EnvelopeRiskIndex] = 0.20
	return p
}

func chileNeurorights() *Profile {
	p := baseProfile("chile-neurorights", "Chilean Constitutional Amendment", "CL")
	p.ForbiddenCapabilities = []string{"mental_privacy_breach", "psych_integrity_override"}
	p.CustomConstraints = append(p.CustomConstraints, CustomConstraint{
		Name:       "no-neural-export",
		Predicate:  PredicateNoNeuralExport,
		Verdict:    ActionForbid,
		ReasonCode: "NEURAL_EXPORT_FORBIDDEN",
	})
	return p
}

func phoenixMedical() *Profile {
	p := baseProfile("phoenix-medical", "Phoenix Medical Authority", "US/Arizona")
	p.Envelopes[EnvelopeSessionMinutes] = EnvelopeRule{Kind: KindResource, Ceiling: ptr(120.0), Monotone: ptr(false)}
	p.Consent.OnConditional = ActionPause
	p.CustomConstraints = append(p.CustomConstraints, CustomConstraint{
		Name:      "knowledge-floor",
		Predicate: PredicateMinKnowledgeFactor,
		Threshold: 0.6,
		Verdict:   ActionPause,
	})
	return p
}
