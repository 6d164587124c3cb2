package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/warden/pkg/config"
)

// ErrConflict is returned when another writer already stored an entry at
// the next offset.
var ErrConflict = errors.New("ledger entry already exists at offset")

// SQLBackend stores entries in the ledger_entries table.
type SQLBackend struct {
	db      *sql.DB
	driver  string
	dialect dialect
	logger  *slog.Logger

	mu     sync.Mutex
	count  int64
	closed bool
}

// OpenSQLite opens a SQLite ledger with the configured driver: "sqlite3"
// (mattn/go-sqlite3) or "sqlite" (modernc.org/sqlite).
func OpenSQLite(ctx context.Context, cfg config.SQLiteConfig) (*SQLBackend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	if driver != "sqlite3" && driver != "sqlite" {
		return nil, NewStorageError(driver, "open", fmt.Errorf("unsupported sqlite driver %q", driver))
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError(driver, "open", err)
	}

	// One connection: SQLite has a single writer, and PRAGMAs are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if cfg.WALMode && cfg.Path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, NewStorageError(driver, "enable_wal", err)
		}
	}
	if cfg.BusyTimeout > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, NewStorageError(driver, "set_busy_timeout", err)
		}
	}

	return newSQLBackend(ctx, db, driver, sqliteDialect)
}

// PostgresDSN builds a lib/pq connection URL from cfg.
func PostgresDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// OpenPostgres opens a PostgreSQL ledger through lib/pq.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*SQLBackend, error) {
	db, err := sql.Open("postgres", PostgresDSN(cfg))
	if err != nil {
		return nil, NewStorageError("postgres", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, NewStorageError("postgres", "ping", err)
	}
	return newSQLBackend(ctx, db, "postgres", postgresDialect)
}

func newSQLBackend(ctx context.Context, db *sql.DB, driver string, d dialect) (*SQLBackend, error) {
	b := &SQLBackend{
		db:      db,
		driver:  driver,
		dialect: d,
		logger:  slog.Default().With("component", "ledger.storage.sql", "driver", driver),
	}

	if err := b.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.QueryRowContext(ctx, d.count).Scan(&b.count); err != nil {
		db.Close()
		return nil, NewStorageError(driver, "count", err)
	}

	b.logger.Info("SQL storage initialized", "entries", b.count)
	return b, nil
}

func (b *SQLBackend) initialize(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, b.dialect.schema); err != nil {
		return NewStorageError(b.driver, "create_schema", err)
	}
	if _, err := b.db.ExecContext(ctx, b.dialect.insertVersion, SchemaVersion); err != nil {
		return NewStorageError(b.driver, "insert_schema_version", err)
	}

	var version int
	if err := b.db.QueryRowContext(ctx, b.dialect.getVersion).Scan(&version); err != nil {
		return NewStorageError(b.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(b.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Append implements ledger.Backend.
func (b *SQLBackend) Append(ctx context.Context, entry []byte) (int64, error) {
	if len(entry) == 0 {
		return 0, NewStorageError(b.driver, "append", ErrInvalidEntry)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	seq := b.count
	if _, err := b.db.ExecContext(ctx, b.dialect.insert, seq, entry); err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w %d", ErrConflict, seq)
		}
		return 0, NewStorageError(b.driver, "append", err)
	}

	b.count++
	return seq, nil
}

// isUniqueViolation reports a primary key conflict from PostgreSQL.
// SQLite drivers report it as a generic constraint error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ReadRange implements ledger.Backend.
func (b *SQLBackend) ReadRange(ctx context.Context, offset int64, count int) ([][]byte, error) {
	if offset < 0 || count <= 0 {
		return nil, nil
	}

	rows, err := b.db.QueryContext(ctx, b.dialect.readRange, offset, count)
	if err != nil {
		return nil, NewStorageError(b.driver, "read", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, NewStorageError(b.driver, "scan", err)
		}
		out = append(out, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(b.driver, "read", err)
	}
	return out, nil
}

// Len implements ledger.Backend.
func (b *SQLBackend) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := b.db.QueryRowContext(ctx, b.dialect.count).Scan(&n); err != nil {
		return 0, NewStorageError(b.driver, "count", err)
	}
	return n, nil
}

// DB exposes the underlying handle for health checks.
func (b *SQLBackend) DB() *sql.DB {
	return b.db
}

// Driver returns the database/sql driver name.
func (b *SQLBackend) Driver() string {
	return b.driver
}

// Close implements ledger.Backend.
func (b *SQLBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}
