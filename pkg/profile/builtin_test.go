package profile

import "testing"

func TestBuiltins(t *testing.T) {
	names := BuiltinNames()
	if len(names) != 3 {
		t.Fatalf("len(BuiltinNames()) = %d, want 3", len(names))
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			p, err := Builtin(name, Options{})
			if err != nil {
				t.Fatalf("Builtin(%q) failed: %v", name, err)
			}
			if p.Source != "builtin" {
				t.Errorf("Source = %q, want builtin", p.Source)
			}
			if got := p.EffectiveCeiling(EnvelopeRiskIndex, ""); got != RiskCeiling {
				t.Errorf("risk ceiling = %v, want %v", got, RiskCeiling)
			}
			for _, right := range DefaultMinimumRights {
				if !p.ProtectsRight(right) {
					t.Errorf("minimum right %q missing", right)
				}
			}
		})
	}
}

func TestBuiltin_BCICeilings(t *testing.T) {
	tests := map[string]float64{
		"eu-neurorights":    0.20,
		"chile-neurorights": 0.25,
		"phoenix-medical":   0.25,
	}

	for name, want := range tests {
		p, err := Builtin(name, Options{})
		if err != nil {
			t.Fatalf("Builtin(%q) failed: %v", name, err)
		}
		if got := p.EffectiveCeiling(EnvelopeRiskIndex, ModuleClassBCI); got != want {
			t.Errorf("%s bci ceiling = %v, want %v", name, got, want)
		}
	}
}

func TestBuiltin_FreshCopies(t *testing.T) {
	a, _ := Builtin("eu-neurorights", Options{})
	b, _ := Builtin("eu-neurorights", Options{})

	a.ModuleClasses[ModuleClassBCI].Ceilings[EnvelopeRiskIndex] = 0.9
	if b.EffectiveCeiling(EnvelopeRiskIndex, ModuleClassBCI) != 0.20 {
		t.Error("mutating one built-in copy affected another")
	}
}

func TestBuiltin_Unknown(t *testing.T) {
	if _, err := Builtin("atlantis", Options{}); err == nil {
		t.Error("Builtin(unknown) error = nil, want error")
	}
}
