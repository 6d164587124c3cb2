package storage

import (
	"context"
	"fmt"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/ledger"
)

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.LedgerConfig) (ledger.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		return OpenFile(cfg.File)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	}
	return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
}
