package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeCounter struct{ err error }

func (f fakeCounter) Len(context.Context) (int64, error) { return 3, f.err }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{"no checks", nil, StatusReady},
		{
			"all healthy",
			map[string]CheckFunc{
				"ledger":  LedgerCheck(fakeCounter{}),
				"catalog": CatalogCheck(func() int { return 3 }),
			},
			StatusReady,
		},
		{
			"ledger down",
			map[string]CheckFunc{
				"ledger":  LedgerCheck(fakeCounter{err: errors.New("db closed")}),
				"catalog": CatalogCheck(func() int { return 3 }),
			},
			StatusNotReady,
		},
		{
			"empty catalog",
			map[string]CheckFunc{"catalog": CatalogCheck(func() int { return 0 })},
			StatusNotReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Readiness(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %q, want %q (%+v)", report.Status, tt.want, report.Checks)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d check results, want %d", len(report.Checks), len(tt.checks))
			}
		})
	}
}

func TestReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Register("hung", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	report := c.Readiness(context.Background())
	if report.Status != StatusNotReady {
		t.Fatalf("status = %q, want %q", report.Status, StatusNotReady)
	}
	if got := report.Checks["hung"].Status; got != StatusUnhealthy {
		t.Errorf("hung check status = %q", got)
	}
}

func TestVerificationCheck(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"passed or not run", nil, false},
		{"failed", errors.New("prev_hash mismatch"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := VerificationCheck(func() error { return tt.err })
			if err := check(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.Register("ledger", LedgerCheck(fakeCounter{err: errors.New("closed")}))

	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness code = %d, want 503", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Checks["ledger"].Message != "closed" {
		t.Errorf("ledger message = %q", report.Checks["ledger"].Message)
	}

	rec = httptest.NewRecorder()
	VersionHandler("1.0.0", "abc123", "2026-01-01").ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/version", nil))
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD wrote a body")
	}
}
