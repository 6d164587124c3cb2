package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage closed")

	// ErrInvalidEntry is returned for entries a backend cannot store.
	ErrInvalidEntry = errors.New("invalid entry")
)

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory", "file", "sqlite3", "sqlite", "postgres"
	Operation string // "open", "append", "read", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
