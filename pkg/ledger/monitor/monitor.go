// Package monitor re-verifies the audit ledger on a cron schedule and
// raises an alarm when the chain no longer verifies.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/warden/pkg/ledger"
)

// Chain is the part of the ledger the monitor needs.
type Chain interface {
	VerifyChain(ctx context.Context, v ledger.Verifier) error
	Len() int64
}

// Status is the result of the last verification.
type Status struct {
	CheckedAt time.Time     `json:"checked_at"`
	Records   int64         `json:"records"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`

	// Index is the first broken record, or -1.
	Index int64 `json:"index"`
}

// OK reports whether the last verification passed.
func (s Status) OK() bool { return s.Err == nil }

// Config configures a Monitor.
type Config struct {
	// Schedule is a standard five-field cron expression. Empty disables
	// scheduled runs; RunOnce still works.
	Schedule string

	// Verifier checks signatures. Nil uses the ledger's own verifier.
	Verifier ledger.Verifier

	// OnResult is called after every run.
	OnResult func(Status)
}

// Monitor runs chain verification on a schedule.
type Monitor struct {
	chain  Chain
	cfg    Config
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	last    *Status
}

// New creates a monitor for chain.
func New(chain Chain, cfg Config) *Monitor {
	return &Monitor{
		chain:  chain,
		cfg:    cfg,
		cron:   cron.New(),
		logger: slog.Default().With("component", "ledger.monitor"),
	}
}

// Start schedules verification. It returns immediately; runs stop when ctx
// is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.Schedule == "" {
		m.logger.Info("verify schedule not configured, skipping monitor")
		return nil
	}
	if _, err := cron.ParseStandard(m.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", m.cfg.Schedule, err)
	}

	if _, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		_ = m.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule verification: %w", err)
	}

	m.cron.Start()
	m.running = true
	m.logger.Info("ledger monitor started", "schedule", m.cfg.Schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

// RunOnce verifies the whole chain now and records the result.
func (m *Monitor) RunOnce(ctx context.Context) error {
	start := time.Now()
	records := m.chain.Len()
	err := m.chain.VerifyChain(ctx, m.cfg.Verifier)

	status := Status{
		CheckedAt: start.UTC(),
		Records:   records,
		Duration:  time.Since(start),
		Err:       err,
		Index:     -1,
	}

	var chainErr *ledger.ChainIntegrityError
	if errors.As(err, &chainErr) {
		status.Index = chainErr.Index
	}

	if err != nil {
		m.logger.Error("ledger chain verification failed",
			"records", records,
			"index", status.Index,
			"error", err)
	} else {
		m.logger.Debug("ledger chain verified", "records", records, "duration", status.Duration)
	}

	m.mu.Lock()
	m.last = &status
	m.mu.Unlock()

	if m.cfg.OnResult != nil {
		m.cfg.OnResult(status)
	}
	return err
}

// Last returns the most recent status, or nil before the first run.
func (m *Monitor) Last() *Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	s := *m.last
	return &s
}

// Stop stops the schedule and waits for a running verification.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	// RunOnce takes mu to store its result, so wait without holding it.
	<-m.cron.Stop().Done()
	m.logger.Info("ledger monitor stopped")
}

// IsRunning reports whether the schedule is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// NextRun returns the next scheduled verification time.
func (m *Monitor) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
