package health

import (
	"context"
	"errors"
	"fmt"
)

// Counter reports a stored length, such as a ledger backend.
type Counter interface {
	Len(ctx context.Context) (int64, error)
}

// LedgerCheck fails when the ledger backend cannot be read.
func LedgerCheck(c Counter) CheckFunc {
	return func(ctx context.Context) error {
		_, err := c.Len(ctx)
		return err
	}
}

// CatalogCheck fails when size reports an empty catalog.
func CatalogCheck(size func() int) CheckFunc {
	return func(ctx context.Context) error {
		if size() == 0 {
			return errors.New("profile catalog is empty")
		}
		return nil
	}
}

// VerificationCheck fails when the last scheduled verification failed. last
// returns nil when verification passed or has not run yet.
func VerificationCheck(last func() error) CheckFunc {
	return func(ctx context.Context) error {
		if err := last(); err != nil {
			return fmt.Errorf("last chain verification failed: %w", err)
		}
		return nil
	}
}
