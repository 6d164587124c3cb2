package guard

import (
	"testing"

	"mercator-hq/warden/pkg/evolution"
	"mercator-hq/warden/pkg/profile"
)

func mustBuiltin(t *testing.T, name string) *profile.Profile {
	t.Helper()
	p, err := profile.Builtin(name, profile.Options{})
	if err != nil {
		t.Fatalf("Builtin(%q) failed: %v", name, err)
	}
	return p
}

func newProposal(envelopes ...evolution.EnvelopePair) *evolution.Proposal {
	return &evolution.Proposal{
		ID:      "p-1",
		Subject: "subject-1",
		Corridor: evolution.CorridorContext{
			CorridorID:    "corridor-1",
			Consent:       evolution.ConsentGranted,
			Jurisdictions: []string{"EU"},
		},
		Evidence: evolution.EvidenceBundle{
			ID:                  "ev-1",
			Tags:                []evolution.EvidenceTag{{Domain: "neural.load", Value: 0.2}},
			KnowledgeConfidence: 0.9,
			Uncertainty:         0.1,
		},
		Description: "tune stimulation",
		Envelopes:   envelopes,
	}
}

func risk(before, after float64) evolution.EnvelopePair {
	return evolution.EnvelopePair{Name: profile.EnvelopeRiskIndex, Before: before, After: after}
}

type priorMap map[string]float64

func (m priorMap) Last(_, envelope string) (float64, bool) {
	v, ok := m[envelope]
	return v, ok
}

func TestNewInput(t *testing.T) {
	prof := mustBuiltin(t, "eu-neurorights")
	p := newProposal(risk(0.2, 0.1), evolution.EnvelopePair{Name: "custom_metric", Before: 3, After: 2})
	p.ModuleClass = profile.ModuleClassBCI

	in := NewInput(p, prof, priorMap{profile.EnvelopeRiskIndex: 0.15})

	if len(in.Envelopes) != 2 {
		t.Fatalf("len(Envelopes) = %d, want 2", len(in.Envelopes))
	}

	r := in.Envelopes[0]
	if r.Ceiling != 0.20 {
		t.Errorf("risk ceiling = %v, want module-class ceiling 0.20", r.Ceiling)
	}
	if r.Baseline != 0.15 || !r.HasPrior {
		t.Errorf("risk baseline = %v (prior %v), want 0.15 from prior", r.Baseline, r.HasPrior)
	}
	if !r.Monotone {
		t.Error("risk_index should be monotone")
	}

	u := in.Envelopes[1]
	if !u.Monotone {
		t.Error("untracked envelope should default to monotone")
	}
	if u.Baseline != 3 {
		t.Errorf("untracked baseline = %v, want 3", u.Baseline)
	}
}

func TestCeilingGuard(t *testing.T) {
	prof := mustBuiltin(t, "eu-neurorights")

	tests := []struct {
		name       string
		after      float64
		wantKind   Kind
		wantReason string
	}{
		{"well below", 0.10, AllowFull, ""},
		{"warn band", 0.28, DegradePrecision, ReasonNearCeiling},
		{"at ceiling", 0.30, DegradePrecision, ReasonNearCeiling},
		{"above ceiling", 0.31, Forbid, ReasonCeilingViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CeilingGuard{}.Evaluate(NewInput(newProposal(risk(0.31, tt.after)), prof, nil))
			if v.Kind != tt.wantKind || v.Reason != tt.wantReason {
				t.Errorf("verdict = %s/%s, want %s/%s", v.Kind, v.Reason, tt.wantKind, tt.wantReason)
			}
		})
	}
}

func TestMonotonicityGuard(t *testing.T) {
	prof := mustBuiltin(t, "eu-neurorights")

	tests := []struct {
		name       string
		pair       evolution.EnvelopePair
		prior      priorMap
		wantKind   Kind
		wantReason string
	}{
		{
			name:       "loosened",
			pair:       risk(0.12, 0.18),
			wantKind:   Forbid,
			wantReason: ReasonEnvelopeLoosened,
		},
		{
			name:     "tightened",
			pair:     risk(0.30, 0.28),
			wantKind: AllowFull,
		},
		{
			name:       "tightened but above ceiling",
			pair:       risk(0.40, 0.35),
			wantKind:   Forbid,
			wantReason: ReasonCeilingViolation,
		},
		{
			name:       "climbs above prior commit",
			pair:       risk(0.25, 0.22),
			prior:      priorMap{profile.EnvelopeRiskIndex: 0.20},
			wantKind:   Forbid,
			wantReason: ReasonEnvelopeLoosened,
		},
		{
			name:     "non-monotone envelope may rise",
			pair:     evolution.EnvelopePair{Name: profile.EnvelopeDutyCycle, Before: 0.1, After: 0.3},
			wantKind: AllowFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prior PriorState
			if tt.prior != nil {
				prior = tt.prior
			}
			v := MonotonicityGuard{}.Evaluate(NewInput(newProposal(tt.pair), prof, prior))
			if v.Kind != tt.wantKind || v.Reason != tt.wantReason {
				t.Errorf("verdict = %s/%s (%s), want %s/%s", v.Kind, v.Reason, v.Message, tt.wantKind, tt.wantReason)
			}
		})
	}
}

func TestEnvelopeTighteningGuard(t *testing.T) {
	prof := mustBuiltin(t, "eu-neurorights")

	v := EnvelopeTighteningGuard{}.Evaluate(NewInput(newProposal(risk(0.12, 0.18)), prof, nil))
	if v.Kind != Forbid || v.Reason != ReasonEnvelopeLoosened {
		t.Errorf("verdict = %s/%s, want forbid/%s", v.Kind, v.Reason, ReasonEnvelopeLoosened)
	}

	// Raw before/after only: a prior commit does not matter here.
	v = EnvelopeTighteningGuard{}.Evaluate(NewInput(newProposal(risk(0.25, 0.22)), prof, priorMap{profile.EnvelopeRiskIndex: 0.1}))
	if v.Kind != AllowFull {
		t.Errorf("verdict = %s, want allow_full", v.Kind)
	}
}

func TestCapabilityGuard(t *testing.T) {
	prof := mustBuiltin(t, "eu-neurorights")

	p := newProposal(risk(0.2, 0.1))
	p.Capabilities = []string{"telemetry", "subconscious_targeting"}
	v := CapabilityGuard{}.Evaluate(NewInput(p, prof, nil))
	if v.Kind != Forbid || v.Reason != ReasonForbiddenCapability {
		t.Errorf("verdict = %s/%s, want forbid/%s", v.Kind, v.Reason, ReasonForbiddenCapability)
	}

	p.Capabilities = []string{"telemetry"}
	if v := (CapabilityGuard{}).Evaluate(NewInput(p, prof, nil)); v.Kind != AllowFull {
		t.Errorf("verdict = %s, want allow_full", v.Kind)
	}
}

func TestRightsFloorGuard(t *testing.T) {
	prof := mustBuiltin(t, "eu-neurorights")

	p := newProposal(risk(0.2, 0.1))
	p.WaivedRights = []string{"right_to_abort"}
	v := RightsFloorGuard{}.Evaluate(NewInput(p, prof, nil))
	if v.Kind != Forbid || v.Reason != ReasonRightsWaiver {
		t.Errorf("verdict = %s/%s, want forbid/%s", v.Kind, v.Reason, ReasonRightsWaiver)
	}

	p.WaivedRights = []string{"right_to_marketing_emails"}
	if v := (RightsFloorGuard{}).Evaluate(NewInput(p, prof, nil)); v.Kind != AllowFull {
		t.Errorf("verdict = %s, want allow_full", v.Kind)
	}
}

func TestConsentGuard(t *testing.T) {
	tests := []struct {
		name       string
		profile    string
		status     evolution.ConsentStatus
		wantKind   Kind
		wantReason string
	}{
		{"granted", "eu-neurorights", evolution.ConsentGranted, AllowFull, ""},
		{"revoked", "eu-neurorights", evolution.ConsentRevoked, Forbid, ReasonConsentRevoked},
		{"pending degrades", "eu-neurorights", evolution.ConsentPending, DegradePrecision, ReasonConsentPending},
		{"conditional degrades", "eu-neurorights", evolution.ConsentConditional, DegradePrecision, ReasonConsentConditional},
		{"conditional pauses", "phoenix-medical", evolution.ConsentConditional, PauseAndRest, ReasonConsentConditional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProposal(risk(0.2, 0.1))
			p.Corridor.Consent = tt.status
			v := ConsentGuard{}.Evaluate(NewInput(p, mustBuiltin(t, tt.profile), nil))
			if v.Kind != tt.wantKind || v.Reason != tt.wantReason {
				t.Errorf("verdict = %s/%s, want %s/%s", v.Kind, v.Reason, tt.wantKind, tt.wantReason)
			}
		})
	}

	t.Run("consent not required", func(t *testing.T) {
		prof := mustBuiltin(t, "eu-neurorights")
		prof.Consent.RequiredForFullAllow = false
		p := newProposal(risk(0.2, 0.1))
		p.Corridor.Consent = evolution.ConsentPending
		if v := (ConsentGuard{}).Evaluate(NewInput(p, prof, nil)); v.Kind != AllowFull {
			t.Errorf("verdict = %s, want allow_full", v.Kind)
		}
	})
}

func TestCustomGuard(t *testing.T) {
	tests := []struct {
		name       string
		constraint profile.CustomConstraint
		mutate     func(p *evolution.Proposal)
		wantKind   Kind
		wantReason string
	}{
		{
			name:       "neural export flag",
			constraint: profile.CustomConstraint{Name: "nx", Predicate: profile.PredicateNoNeuralExport, Verdict: profile.ActionForbid, ReasonCode: "NEURAL_EXPORT_FORBIDDEN"},
			mutate:     func(p *evolution.Proposal) { p.Attributes = map[string]string{"neural_export": "true"} },
			wantKind:   Forbid,
			wantReason: "NEURAL_EXPORT_FORBIDDEN",
		},
		{
			name:       "coercive uptake",
			constraint: profile.CustomConstraint{Name: "cu", Predicate: profile.PredicateNoCoerciveUptake, Verdict: profile.ActionForbid},
			mutate: func(p *evolution.Proposal) {
				p.Attributes = map[string]string{"essential_service": "true", "requires_augmentation": "TRUE"}
			},
			wantKind:   Forbid,
			wantReason: ReasonCustomConstraint,
		},
		{
			name:       "knowledge floor",
			constraint: profile.CustomConstraint{Name: "kf", Predicate: profile.PredicateMinKnowledgeFactor, Threshold: 0.95, Verdict: profile.ActionPause},
			wantKind:   PauseAndRest,
			wantReason: ReasonCustomConstraint,
		},
		{
			name:       "uncertainty ok",
			constraint: profile.CustomConstraint{Name: "mu", Predicate: profile.PredicateMaxUncertainty, Threshold: 0.2, Verdict: profile.ActionDegrade},
			wantKind:   AllowFull,
		},
		{
			name:       "effective margin",
			constraint: profile.CustomConstraint{Name: "em", Predicate: profile.PredicateMinEffectiveMargin, Threshold: 0.85, Verdict: profile.ActionDegrade},
			wantKind:   DegradePrecision,
			wantReason: ReasonCustomConstraint,
		},
		{
			name:       "eco impact named metric",
			constraint: profile.CustomConstraint{Name: "eco", Predicate: profile.PredicateMaxEcoImpact, Threshold: 1, Value: "kwh", Verdict: profile.ActionDegrade},
			mutate:     func(p *evolution.Proposal) { p.Corridor.EcoImpact = map[string]float64{"kwh": 2, "water": 0.1} },
			wantKind:   DegradePrecision,
			wantReason: ReasonCustomConstraint,
		},
		{
			name:       "eco impact other metric",
			constraint: profile.CustomConstraint{Name: "eco", Predicate: profile.PredicateMaxEcoImpact, Threshold: 1, Value: "water", Verdict: profile.ActionDegrade},
			mutate:     func(p *evolution.Proposal) { p.Corridor.EcoImpact = map[string]float64{"kwh": 2, "water": 0.1} },
			wantKind:   AllowFull,
		},
		{
			name:       "unknown predicate fails closed",
			constraint: profile.CustomConstraint{Name: "ghost", Predicate: "does_not_exist", Verdict: profile.ActionDegrade},
			wantKind:   Forbid,
			wantReason: ReasonGuardFailure,
		},
	}

	prof := mustBuiltin(t, "eu-neurorights")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProposal(risk(0.2, 0.1))
			if tt.mutate != nil {
				tt.mutate(p)
			}
			g := CustomGuard{Constraint: tt.constraint}
			v := g.Evaluate(NewInput(p, prof, nil))
			if v.Kind != tt.wantKind || v.Reason != tt.wantReason {
				t.Errorf("verdict = %s/%s, want %s/%s", v.Kind, v.Reason, tt.wantKind, tt.wantReason)
			}
			if v.Guard != "custom:"+tt.constraint.Name {
				t.Errorf("guard = %q", v.Guard)
			}
		})
	}
}

func TestRegisterPredicate(t *testing.T) {
	RegisterPredicate("max_session_count", profile.OrderingLowerIsStricter,
		func(in *Input, c profile.CustomConstraint) (bool, string) {
			return len(in.Proposal.Envelopes) > int(c.Threshold), "too many envelopes"
		})

	if _, ok := profile.LookupPredicate("max_session_count"); !ok {
		t.Fatal("predicate not declared to the profile package")
	}

	g := CustomGuard{Constraint: profile.CustomConstraint{
		Name: "sessions", Predicate: "max_session_count", Threshold: 0, Verdict: profile.ActionPause,
	}}
	v := g.Evaluate(NewInput(newProposal(risk(0.2, 0.1)), mustBuiltin(t, "eu-neurorights"), nil))
	if v.Kind != PauseAndRest {
		t.Errorf("verdict = %s, want pause_and_rest", v.Kind)
	}
}
