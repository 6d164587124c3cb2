package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in memory. Nothing survives a restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries [][]byte
	closed  bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Append implements ledger.Backend.
func (m *MemoryBackend) Append(ctx context.Context, entry []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	m.entries = append(m.entries, append([]byte(nil), entry...))
	return int64(len(m.entries) - 1), nil
}

// ReadRange implements ledger.Backend.
func (m *MemoryBackend) ReadRange(ctx context.Context, offset int64, count int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var out [][]byte
	for i := offset; i >= 0 && i < int64(len(m.entries)) && len(out) < count; i++ {
		out = append(out, append([]byte(nil), m.entries[i]...))
	}
	return out, nil
}

// Len implements ledger.Backend.
func (m *MemoryBackend) Len(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return int64(len(m.entries)), nil
}

// Close implements ledger.Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
