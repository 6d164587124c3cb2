package monotonicity

import (
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    []Kind
	}{
		{
			name:    "decrease within ceiling",
			entries: []Entry{{Name: "risk_index", Before: 0.30, After: 0.28, Ceiling: 0.30, MonotoneRequired: true}},
			want:    nil,
		},
		{
			name:    "equal value holds",
			entries: []Entry{{Name: "risk_index", Before: 0.2, After: 0.2, Ceiling: 0.3, MonotoneRequired: true}},
			want:    nil,
		},
		{
			name:    "loosened",
			entries: []Entry{{Name: "risk_index", Before: 0.12, After: 0.18, Ceiling: 0.30, MonotoneRequired: true}},
			want:    []Kind{KindMonotone},
		},
		{
			name:    "increase allowed when not monotone",
			entries: []Entry{{Name: "duty_cycle", Before: 0.2, After: 0.5, Ceiling: 0.8}},
			want:    nil,
		},
		{
			name:    "ceiling only",
			entries: []Entry{{Name: "duty_cycle", Before: 0.9, After: 0.85, Ceiling: 0.8}},
			want:    []Kind{KindCeiling},
		},
		{
			name:    "both on one entry",
			entries: []Entry{{Name: "risk_index", Before: 0.2, After: 0.4, Ceiling: 0.3, MonotoneRequired: true}},
			want:    []Kind{KindMonotone, KindCeiling},
		},
		{
			name: "all entries reported",
			entries: []Entry{
				{Name: "a", Before: 0.1, After: 0.2, Ceiling: NoCeiling, MonotoneRequired: true},
				{Name: "b", Before: 0.1, After: 0.05, Ceiling: 1},
				{Name: "c", Before: 0.5, After: 2, Ceiling: 1},
			},
			want: []Kind{KindMonotone, KindCeiling},
		},
		{
			name:    "no ceiling",
			entries: []Entry{{Name: "a", Before: 5, After: 1000, Ceiling: NoCeiling}},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.entries)
			if len(got) != len(tt.want) {
				t.Fatalf("Check() = %v, want kinds %v", got, tt.want)
			}
			for i, k := range tt.want {
				if got[i].Kind != k {
					t.Errorf("Check()[%d].Kind = %q, want %q", i, got[i].Kind, k)
				}
			}
		})
	}
}

func TestCheck_ViolationCarriesValues(t *testing.T) {
	got := Check([]Entry{{Name: "risk_index", Before: 0.12, After: 0.18, Ceiling: 0.30, MonotoneRequired: true}})
	if len(got) != 1 {
		t.Fatalf("len(Check()) = %d, want 1", len(got))
	}

	v := got[0]
	if v.Name != "risk_index" || v.Before != 0.12 || v.After != 0.18 {
		t.Errorf("violation = %+v, want risk_index 0.12 -> 0.18", v)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]Entry{{Name: "a", Before: 1, After: 0.5, Ceiling: 1, MonotoneRequired: true}}); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	err := Validate([]Entry{
		{Name: "a", Before: 0.1, After: 0.2, Ceiling: 1, MonotoneRequired: true},
		{Name: "b", Before: 0.1, After: 2, Ceiling: 1},
	})

	var verr *ViolationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error type = %T, want *ViolationError", err)
	}
	if len(verr.Violations) != 2 {
		t.Errorf("len(Violations) = %d, want 2", len(verr.Violations))
	}
	if !HasKind(verr.Violations, KindCeiling) || !HasKind(verr.Violations, KindMonotone) {
		t.Errorf("Violations = %v, want both kinds", verr.Violations)
	}
}
