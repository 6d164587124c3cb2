// Package storage provides append-only byte backends for the audit ledger.
//
// Three backends are available:
//
//   - MemoryBackend: entries in a slice, for tests and ephemeral runs
//   - FileBackend: one JSON record per line in a local file
//   - SQLBackend: a ledger_entries table in SQLite (mattn/go-sqlite3 or
//     modernc.org/sqlite) or PostgreSQL (lib/pq)
//
// All backends only ever add entries. The SQL schema installs triggers that
// abort any UPDATE or DELETE on ledger_entries. The file backend writes each
// entry followed by a newline and treats a trailing line without one as an
// unacknowledged, torn write: it is ignored on open and truncated before the
// next append.
//
// # Usage
//
//	backend, err := storage.New(ctx, cfg.Ledger)
//	if err != nil {
//		return err
//	}
//	l, err := ledger.Open(ctx, backend, signer, ledger.Options{})
package storage
