package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Backend persists encoded records. Offsets are 0-based record indexes.
type Backend interface {
	// Append stores one entry and returns its offset.
	Append(ctx context.Context, entry []byte) (int64, error)

	// ReadRange returns up to count entries starting at offset.
	ReadRange(ctx context.Context, offset int64, count int) ([][]byte, error)

	// Len returns the number of stored entries.
	Len(ctx context.Context) (int64, error)

	Close() error
}

// verifyBatch is how many entries VerifyChain reads at once.
const verifyBatch = 256

// Options configures a Ledger.
type Options struct {
	// Verifier checks signatures in VerifyChain when the caller passes none.
	// Defaults to the signer when it implements Verifier.
	Verifier Verifier

	// VerifyOnOpen walks the whole chain in Open.
	VerifyOnOpen bool

	// Clock returns the record timestamp. Defaults to time.Now.
	Clock func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Ledger is the append-only audit ledger. All writes go through Append.
type Ledger struct {
	backend  Backend
	signer   Signer
	verifier Verifier
	clock    func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	head   string
	count  int64
	broken error
	closed bool
}

// Open restores a ledger from backend: its length and head hash. With
// VerifyOnOpen the full chain is verified first.
func Open(ctx context.Context, backend Backend, signer Signer, opts Options) (*Ledger, error) {
	if backend == nil {
		return nil, errors.New("ledger backend is required")
	}
	if signer == nil {
		return nil, errors.New("ledger signer is required")
	}
	if opts.Verifier == nil {
		if v, ok := signer.(Verifier); ok {
			opts.Verifier = v
		}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	l := &Ledger{
		backend:  backend,
		signer:   signer,
		verifier: opts.Verifier,
		clock:    opts.Clock,
		logger:   opts.Logger.With("component", "ledger"),
		head:     Genesis,
	}

	n, err := backend.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger length: %w", err)
	}

	if n > 0 {
		entries, err := backend.ReadRange(ctx, n-1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger head: %w", err)
		}
		if len(entries) != 1 {
			return nil, fmt.Errorf("ledger head missing at offset %d", n-1)
		}
		last, err := Decode(entries[0])
		if err != nil {
			return nil, &ChainIntegrityError{Index: n - 1, Reason: ReasonDecode, Cause: err}
		}
		if last.Sequence != n-1 {
			return nil, &ChainIntegrityError{Index: n - 1, Reason: ReasonSequence,
				Cause: fmt.Errorf("got %d", last.Sequence)}
		}
		l.head = Hash(entries[0])
		l.count = n
	}

	if opts.VerifyOnOpen {
		if err := l.VerifyChain(ctx, nil); err != nil {
			return nil, err
		}
	}

	l.logger.Info("ledger opened", "records", l.count, "head", l.head, "key_id", signer.KeyID())
	return l, nil
}

// Append validates d, links it to the current head, signs it and persists
// it. On any failure the head and length are unchanged.
func (l *Ledger) Append(ctx context.Context, d Draft) (*Record, error) {
	d.normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if l.broken != nil {
		return nil, NewLedgerWriteError(l.count, "append", l.broken)
	}

	rec := &Record{
		Sequence:  l.count,
		ID:        uuid.NewString(),
		Timestamp: l.clock().UTC(),
		Draft:     d,
		PrevHash:  l.head,
		KeyID:     l.signer.KeyID(),
	}

	payload, err := rec.SigningPayload()
	if err != nil {
		return nil, NewLedgerWriteError(rec.Sequence, "encode", err)
	}
	sig, err := l.signer.Sign(payload)
	if err != nil {
		return nil, NewLedgerWriteError(rec.Sequence, "sign", err)
	}
	rec.Signature = hex.EncodeToString(sig)

	data, err := rec.Encode()
	if err != nil {
		return nil, NewLedgerWriteError(rec.Sequence, "encode", err)
	}

	offset, err := l.backend.Append(ctx, data)
	if err != nil {
		return nil, NewLedgerWriteError(rec.Sequence, "append", err)
	}
	if offset != rec.Sequence {
		// The backend and the chain disagree; refuse further writes.
		l.broken = fmt.Errorf("backend stored record at offset %d, expected %d", offset, rec.Sequence)
		l.logger.Error("ledger offset mismatch", "expected", rec.Sequence, "offset", offset)
		return nil, NewLedgerWriteError(rec.Sequence, "append", l.broken)
	}

	l.head = Hash(data)
	l.count++
	return rec, nil
}

// Head returns the hash of the last record, or Genesis when empty.
func (l *Ledger) Head() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head
}

// Len returns the number of records.
func (l *Ledger) Len() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Records decodes up to count records starting at offset.
func (l *Ledger) Records(ctx context.Context, offset int64, count int) ([]*Record, error) {
	if offset < 0 || count < 0 {
		return nil, fmt.Errorf("invalid range offset=%d count=%d", offset, count)
	}

	n := l.Len()
	if offset >= n || count == 0 {
		return nil, nil
	}
	if remaining := n - offset; int64(count) > remaining {
		count = int(remaining)
	}

	entries, err := l.backend.ReadRange(ctx, offset, count)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, len(entries))
	for i, data := range entries {
		rec, err := Decode(data)
		if err != nil {
			return nil, &ChainIntegrityError{Index: offset + int64(i), Reason: ReasonDecode, Cause: err}
		}
		records[i] = rec
	}
	return records, nil
}

// VerifyChain walks every record from the first and checks, in order:
// decoding, canonical encoding, sequence, previous hash, signature and
// record invariants. The first failure is returned as *ChainIntegrityError.
// A nil verifier uses the ledger's configured verifier.
func (l *Ledger) VerifyChain(ctx context.Context, v Verifier) error {
	if v == nil {
		v = l.verifier
	}
	if v == nil {
		return errors.New("no verifier configured")
	}

	n, err := l.backend.Len(ctx)
	if err != nil {
		return &ChainIntegrityError{Index: 0, Reason: ReasonRead, Cause: err}
	}
	return VerifyEntries(ctx, l.backend, n, v)
}

// VerifyEntries verifies the first n entries of backend.
func VerifyEntries(ctx context.Context, backend Backend, n int64, v Verifier) error {
	prev := Genesis
	for offset := int64(0); offset < n; offset += verifyBatch {
		if err := ctx.Err(); err != nil {
			return err
		}

		count := verifyBatch
		if rem := n - offset; rem < int64(count) {
			count = int(rem)
		}
		entries, err := backend.ReadRange(ctx, offset, count)
		if err != nil {
			return &ChainIntegrityError{Index: offset, Reason: ReasonRead, Cause: err}
		}
		if len(entries) != count {
			return &ChainIntegrityError{Index: offset + int64(len(entries)), Reason: ReasonRead,
				Cause: fmt.Errorf("expected %d entries, got %d", count, len(entries))}
		}

		for i, data := range entries {
			idx := offset + int64(i)
			if err := verifyEntry(idx, prev, data, v); err != nil {
				return err
			}
			prev = Hash(data)
		}
	}
	return nil
}

func verifyEntry(idx int64, prev string, data []byte, v Verifier) error {
	rec, err := Decode(data)
	if err != nil {
		return &ChainIntegrityError{Index: idx, Reason: ReasonDecode, Cause: err}
	}

	canonical, err := rec.Encode()
	if err != nil || !bytes.Equal(canonical, data) {
		return &ChainIntegrityError{Index: idx, Reason: ReasonNonCanonical, Cause: err}
	}
	if rec.Sequence != idx {
		return &ChainIntegrityError{Index: idx, Reason: ReasonSequence, Cause: fmt.Errorf("got %d", rec.Sequence)}
	}
	if rec.PrevHash != prev {
		return &ChainIntegrityError{Index: idx, Reason: ReasonPrevHash}
	}

	sig, err := hex.DecodeString(rec.Signature)
	if err != nil {
		return &ChainIntegrityError{Index: idx, Reason: ReasonSignature, Cause: err}
	}
	// DecodeString accepts either case; stored signatures are lowercase.
	if hex.EncodeToString(sig) != rec.Signature {
		return &ChainIntegrityError{Index: idx, Reason: ReasonSignature, Cause: errors.New("signature not lowercase hex")}
	}
	payload, err := rec.SigningPayload()
	if err != nil || !v.Verify(payload, sig, rec.KeyID) {
		return &ChainIntegrityError{Index: idx, Reason: ReasonSignature, Cause: err}
	}

	if err := rec.Validate(); err != nil {
		return &ChainIntegrityError{Index: idx, Reason: ReasonInvariant, Cause: err}
	}
	return nil
}

// Close closes the backend. Further appends fail with ErrClosed.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.backend.Close()
}
