package storage

// SchemaVersion is the current ledger database schema version.
const SchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    seq INTEGER PRIMARY KEY,
    payload BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TRIGGER IF NOT EXISTS ledger_entries_no_update
BEFORE UPDATE ON ledger_entries
BEGIN
    SELECT RAISE(ABORT, 'ledger entries are append-only');
END;

CREATE TRIGGER IF NOT EXISTS ledger_entries_no_delete
BEFORE DELETE ON ledger_entries
BEGIN
    SELECT RAISE(ABORT, 'ledger entries are append-only');
END;

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    seq BIGINT PRIMARY KEY,
    payload BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE OR REPLACE FUNCTION ledger_entries_append_only() RETURNS trigger AS $$
BEGIN
    RAISE EXCEPTION 'ledger entries are append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS ledger_entries_no_mutation ON ledger_entries;
CREATE TRIGGER ledger_entries_no_mutation
BEFORE UPDATE OR DELETE ON ledger_entries
FOR EACH ROW EXECUTE FUNCTION ledger_entries_append_only();

DROP TRIGGER IF EXISTS ledger_entries_no_truncate ON ledger_entries;
CREATE TRIGGER ledger_entries_no_truncate
BEFORE TRUNCATE ON ledger_entries
FOR EACH STATEMENT EXECUTE FUNCTION ledger_entries_append_only();

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// dialect holds the SQL that differs between engines.
type dialect struct {
	schema        string
	insertVersion string
	getVersion    string
	insert        string
	readRange     string
	count         string
}

var sqliteDialect = dialect{
	schema:        sqliteSchema,
	insertVersion: `INSERT INTO schema_version (version) VALUES (?) ON CONFLICT(version) DO NOTHING`,
	getVersion:    `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`,
	insert:        `INSERT INTO ledger_entries (seq, payload) VALUES (?, ?)`,
	readRange:     `SELECT payload FROM ledger_entries WHERE seq >= ? ORDER BY seq LIMIT ?`,
	count:         `SELECT COUNT(*) FROM ledger_entries`,
}

var postgresDialect = dialect{
	schema:        postgresSchema,
	insertVersion: `INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
	getVersion:    `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`,
	insert:        `INSERT INTO ledger_entries (seq, payload) VALUES ($1, $2)`,
	readRange:     `SELECT payload FROM ledger_entries WHERE seq >= $1 ORDER BY seq LIMIT $2`,
	count:         `SELECT COUNT(*) FROM ledger_entries`,
}
