package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"mercator-hq/warden/pkg/config"
)

const fileBackendName = "file"

// FileBackend stores one entry per line in a local file.
type FileBackend struct {
	mu      sync.RWMutex
	file    *os.File
	path    string
	sync    bool
	offsets []int64 // start of each complete entry
	end     int64   // end of the last complete entry
	closed  bool
	logger  *slog.Logger
}

// OpenFile opens or creates the ledger file at cfg.Path and indexes its
// complete lines.
func OpenFile(cfg config.FileConfig) (*FileBackend, error) {
	if cfg.Path == "" {
		return nil, NewStorageError(fileBackendName, "open", errors.New("path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
		return nil, NewStorageError(fileBackendName, "open", err)
	}

	// #nosec G304 - ledger path is operator configured.
	f, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		return nil, NewStorageError(fileBackendName, "open", err)
	}

	b := &FileBackend{
		file:   f,
		path:   cfg.Path,
		sync:   cfg.Sync,
		logger: slog.Default().With("component", "ledger.storage.file"),
	}
	if err := b.index(); err != nil {
		f.Close()
		return nil, err
	}

	b.logger.Info("file storage opened", "path", cfg.Path, "entries", len(b.offsets), "sync", cfg.Sync)
	return b, nil
}

func (b *FileBackend) index() error {
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return NewStorageError(fileBackendName, "index", err)
	}

	r := bufio.NewReader(b.file)
	var pos int64
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			b.offsets = append(b.offsets, pos)
			pos += int64(len(line))
			b.end = pos
		} else if len(line) > 0 {
			b.logger.Warn("ignoring torn trailing entry", "path", b.path, "offset", pos, "bytes", len(line))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return NewStorageError(fileBackendName, "index", err)
		}
	}
}

// Append implements ledger.Backend. The entry must not contain a newline.
func (b *FileBackend) Append(ctx context.Context, entry []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(entry) == 0 || bytes.IndexByte(entry, '\n') >= 0 {
		return 0, NewStorageError(fileBackendName, "append", ErrInvalidEntry)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	// Drop anything past the last complete entry.
	if err := b.file.Truncate(b.end); err != nil {
		return 0, NewStorageError(fileBackendName, "truncate", err)
	}

	line := make([]byte, 0, len(entry)+1)
	line = append(line, entry...)
	line = append(line, '\n')

	if _, err := b.file.WriteAt(line, b.end); err != nil {
		_ = b.file.Truncate(b.end)
		return 0, NewStorageError(fileBackendName, "append", err)
	}
	if b.sync {
		if err := b.file.Sync(); err != nil {
			_ = b.file.Truncate(b.end)
			return 0, NewStorageError(fileBackendName, "sync", err)
		}
	}

	offset := int64(len(b.offsets))
	b.offsets = append(b.offsets, b.end)
	b.end += int64(len(line))
	return offset, nil
}

// ReadRange implements ledger.Backend.
func (b *FileBackend) ReadRange(ctx context.Context, offset int64, count int) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}

	var out [][]byte
	for i := offset; i >= 0 && i < int64(len(b.offsets)) && len(out) < count; i++ {
		start := b.offsets[i]
		stop := b.end
		if i+1 < int64(len(b.offsets)) {
			stop = b.offsets[i+1]
		}

		buf := make([]byte, stop-start-1)
		if _, err := b.file.ReadAt(buf, start); err != nil {
			return nil, NewStorageError(fileBackendName, "read", fmt.Errorf("entry %d: %w", i, err))
		}
		out = append(out, buf)
	}
	return out, nil
}

// Len implements ledger.Backend.
func (b *FileBackend) Len(context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrClosed
	}
	return int64(len(b.offsets)), nil
}

// Path returns the ledger file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Close implements ledger.Backend.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.file.Close()
}
