package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("ledger closed")

// LedgerWriteError reports a failed append. The ledger head is unchanged.
type LedgerWriteError struct {
	Sequence  int64  // Sequence the record would have had
	Operation string // "sign", "encode", "append"
	Cause     error
}

// Error implements the error interface.
func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger write failed [seq=%d, operation=%s]: %v", e.Sequence, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *LedgerWriteError) Unwrap() error {
	return e.Cause
}

// NewLedgerWriteError creates a new LedgerWriteError.
func NewLedgerWriteError(seq int64, operation string, cause error) *LedgerWriteError {
	return &LedgerWriteError{Sequence: seq, Operation: operation, Cause: cause}
}

// ChainIntegrityError reports the first record at which verification failed.
type ChainIntegrityError struct {
	Index  int64
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ChainIntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chain integrity broken at record %d: %s: %v", e.Index, e.Reason, e.Cause)
	}
	return fmt.Sprintf("chain integrity broken at record %d: %s", e.Index, e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *ChainIntegrityError) Unwrap() error {
	return e.Cause
}

// Verification failure reasons.
const (
	ReasonDecode       = "undecodable record"
	ReasonNonCanonical = "non-canonical encoding"
	ReasonSequence     = "sequence mismatch"
	ReasonPrevHash     = "previous hash mismatch"
	ReasonSignature    = "invalid signature"
	ReasonInvariant    = "record invariant violated"
	ReasonRead         = "read failed"
)

// InvariantError lists the construction invariants a draft breaks.
type InvariantError struct {
	Problems []string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invalid audit record: %s", strings.Join(e.Problems, "; "))
}
