package store

import (
	"errors"
	"sync"
	"testing"

	"mercator-hq/warden/pkg/profile"
)

func builtin(t *testing.T, name string) *profile.Profile {
	t.Helper()
	p, err := profile.Builtin(name, profile.Options{})
	if err != nil {
		t.Fatalf("Builtin(%q) failed: %v", name, err)
	}
	return p
}

// stricter returns a successor of base with a lower risk ceiling.
func stricter(t *testing.T, base string, version string) *profile.Profile {
	t.Helper()
	p := builtin(t, base)
	p.Version = version
	c := 0.28
	rule := p.Envelopes[profile.EnvelopeRiskIndex]
	rule.Ceiling = &c
	p.Envelopes[profile.EnvelopeRiskIndex] = rule
	out, err := profile.Finalize(p, profile.Options{Source: "test"})
	if err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	return out
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(NewCatalog(
		builtin(t, "eu-neurorights"),
		builtin(t, "chile-neurorights"),
		builtin(t, "phoenix-medical"),
	), Config{})
}

func TestStore_Load(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		jurisdictions []string
		want          string
	}{
		{[]string{"EU"}, "eu-neurorights"},
		{[]string{"CL", "other"}, "chile-neurorights"},
		{[]string{"US/Arizona"}, "phoenix-medical"},
	}

	for i, tt := range tests {
		corridor := string(rune('a' + i))
		p, err := s.Load(corridor, tt.jurisdictions, nil)
		if err != nil {
			t.Fatalf("Load(%v) failed: %v", tt.jurisdictions, err)
		}
		if p.Name != tt.want {
			t.Errorf("Load(%v) = %q, want %q", tt.jurisdictions, p.Name, tt.want)
		}
	}
}

func TestStore_Load_BindingIsSticky(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Load("corridor-1", []string{"EU"}, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Later loads return the bound profile even with different tags.
	second, err := s.Load("corridor-1", []string{"CL"}, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if second != first {
		t.Errorf("Load() rebound corridor to %q", second.Name)
	}
}

func TestStore_Load_NoMatch(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load("corridor-1", []string{"MARS"}, nil)
	var verr *profile.ProfileValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Load() error type = %T, want *ProfileValidationError", err)
	}
	if !errors.Is(err, profile.ErrNoMatchingProfile) {
		t.Errorf("Load() error = %v, want ErrNoMatchingProfile", err)
	}

	s.config.DefaultProfile = "eu-neurorights"
	p, err := s.Load("corridor-1", []string{"MARS"}, nil)
	if err != nil {
		t.Fatalf("Load() with default failed: %v", err)
	}
	if p.Name != "eu-neurorights" {
		t.Errorf("Load() default = %q, want eu-neurorights", p.Name)
	}
}

func TestStore_Load_Credentials(t *testing.T) {
	p := builtin(t, "eu-neurorights")
	p.RequiredCredentials = []string{"ethics-board-approval"}
	s := New(NewCatalog(p), Config{})

	_, err := s.Load("corridor-1", []string{"EU"}, nil)
	if !errors.Is(err, profile.ErrMissingCredentials) {
		t.Fatalf("Load() error = %v, want ErrMissingCredentials", err)
	}

	if _, err := s.Load("corridor-1", []string{"EU"}, []string{"ethics-board-approval"}); err != nil {
		t.Fatalf("Load() with credentials failed: %v", err)
	}
}

func TestStore_Supersede(t *testing.T) {
	s := newTestStore(t)
	old, err := s.Load("corridor-1", []string{"EU"}, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	next := stricter(t, "eu-neurorights", "1.1.0")
	if err := s.Supersede("corridor-1", old, next); err != nil {
		t.Fatalf("Supersede() failed: %v", err)
	}

	active, _ := s.Active("corridor-1")
	if active != next {
		t.Error("Active() is not the successor")
	}

	history := s.History("corridor-1")
	if len(history) != 2 || history[0] != old || history[1] != next {
		t.Errorf("History() = %v, want [old next]", history)
	}

	// The superseded profile can no longer be superseded.
	if err := s.Supersede("corridor-1", old, stricter(t, "eu-neurorights", "1.2.0")); !errors.Is(err, profile.ErrNotActive) {
		t.Errorf("Supersede(stale) = %v, want ErrNotActive", err)
	}
}

func TestStore_Supersede_Downgrade(t *testing.T) {
	s := newTestStore(t)
	old, _ := s.Load("corridor-1", []string{"EU"}, nil)

	looser := builtin(t, "eu-neurorights")
	looser.Version = "2.0.0"
	looser.ForbiddenCapabilities = nil
	looser, err := profile.Finalize(looser, profile.Options{})
	if err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	err = s.Supersede("corridor-1", old, looser)
	var downgrade *profile.PolicyDowngradeError
	if !errors.As(err, &downgrade) {
		t.Fatalf("Supersede() error type = %T, want *PolicyDowngradeError", err)
	}

	if active, _ := s.Active("corridor-1"); active != old {
		t.Error("rejected supersession changed the active profile")
	}
	if len(s.History("corridor-1")) != 1 {
		t.Error("rejected supersession changed history")
	}
}

func TestStore_Supersede_Unbound(t *testing.T) {
	s := newTestStore(t)
	err := s.Supersede("nowhere", builtin(t, "eu-neurorights"), stricter(t, "eu-neurorights", "1.1.0"))
	if !errors.Is(err, profile.ErrNotActive) {
		t.Errorf("Supersede(unbound) = %v, want ErrNotActive", err)
	}
}

func TestStore_UpdateCatalog(t *testing.T) {
	s := newTestStore(t)
	old, _ := s.Load("corridor-1", []string{"EU"}, nil)
	if _, err := s.Load("corridor-2", []string{"CL"}, nil); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	next := stricter(t, "eu-neurorights", "1.1.0")
	candidates := s.UpdateCatalog([]*profile.Profile{next, builtin(t, "chile-neurorights")})

	if len(candidates) != 1 {
		t.Fatalf("len(UpdateCatalog()) = %d, want 1", len(candidates))
	}
	c := candidates[0]
	if c.CorridorID != "corridor-1" || c.Current != old || c.Next != next {
		t.Errorf("candidate = %+v, want corridor-1 old->next", c)
	}

	// Catalog updates never rebind.
	if active, _ := s.Active("corridor-1"); active != old {
		t.Error("UpdateCatalog() changed an active profile")
	}
}

func TestStore_ConcurrentLoadAndSupersede(t *testing.T) {
	s := newTestStore(t)
	old, _ := s.Load("corridor-1", []string{"EU"}, nil)
	next := stricter(t, "eu-neurorights", "1.1.0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Load("corridor-1", []string{"EU"}, nil)
			if err != nil {
				t.Errorf("Load() failed: %v", err)
				return
			}
			if p != old && p != next {
				t.Error("Load() observed a profile that is neither old nor next")
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Supersede("corridor-1", old, next); err != nil {
			t.Errorf("Supersede() failed: %v", err)
		}
	}()
	wg.Wait()
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(builtin(t, "eu-neurorights"))
	v1 := c.Version()

	if err := c.Register(stricter(t, "eu-neurorights", "1.1.0")); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("Count() = %d, want 1", c.Count())
	}
	p, _ := c.Get("eu-neurorights")
	if p.Version != "1.1.0" {
		t.Errorf("Get() version = %s, want 1.1.0", p.Version)
	}
	if c.Version() == v1 {
		t.Error("Version() unchanged after register")
	}

	// Older versions do not replace newer ones.
	_ = c.Register(builtin(t, "eu-neurorights"))
	p, _ = c.Get("eu-neurorights")
	if p.Version != "1.1.0" {
		t.Errorf("Register(older) replaced entry with %s", p.Version)
	}

	if err := c.Register(nil); err == nil {
		t.Error("Register(nil) error = nil, want error")
	}
}
