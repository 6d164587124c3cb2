package engine

import (
	"context"
	"fmt"
	"sync"

	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/ledger"
)

// priorBatch is how many records are read at a time when rebuilding.
const priorBatch = 256

// PriorState holds the last committed after value of every subject envelope.
// Only allowed decisions are committed.
type PriorState struct {
	mu       sync.RWMutex
	values   map[string]map[string]float64
	versions map[string]uint64
}

// NewPriorState returns an empty prior state.
func NewPriorState() *PriorState {
	return &PriorState{
		values:   make(map[string]map[string]float64),
		versions: make(map[string]uint64),
	}
}

// Last implements guard.PriorState.
func (s *PriorState) Last(subject, envelope string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[subject][envelope]
	return v, ok
}

// Snapshot returns a copy of the subject's committed values.
func (s *PriorState) Snapshot(subject string) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.values[subject]))
	for k, v := range s.values[subject] {
		out[k] = v
	}
	return out
}

// version changes every time the subject's values are committed.
func (s *PriorState) version(subject string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[subject]
}

func (s *PriorState) commit(subject string, envelopes []ledger.EnvelopeState) {
	if len(envelopes) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vals, ok := s.values[subject]
	if !ok {
		vals = make(map[string]float64, len(envelopes))
		s.values[subject] = vals
	}
	for _, e := range envelopes {
		vals[e.Name] = e.After
	}
	s.versions[subject]++
}

// Rebuild replays every allowed record in l.
func (s *PriorState) Rebuild(ctx context.Context, l *ledger.Ledger) error {
	n := l.Len()
	for offset := int64(0); offset < n; offset += priorBatch {
		records, err := l.Records(ctx, offset, priorBatch)
		if err != nil {
			return fmt.Errorf("failed to rebuild prior state at record %d: %w", offset, err)
		}
		for _, r := range records {
			if r.Outcome == guard.OutcomeAllowed {
				s.commit(r.Subject, r.Envelopes)
			}
		}
	}
	return nil
}
