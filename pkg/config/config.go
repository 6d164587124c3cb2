package config

import "time"

// Config is the root configuration structure for Warden.
type Config struct {
	// Server contains the HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Profiles contains policy profile sources and binding options.
	Profiles ProfilesConfig `yaml:"profiles"`

	// Ledger contains audit ledger storage, signing and verification settings.
	Ledger LedgerConfig `yaml:"ledger"`

	// Guards contains guard pipeline settings.
	Guards GuardsConfig `yaml:"guards"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8470"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits the size of a submitted proposal.
	// Default: 1MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TLS serves the API over HTTPS.
	TLS TLSConfig `yaml:"tls"`

	// Auth requires an API key on every /v1 route.
	Auth AuthConfig `yaml:"auth"`
}

// TLSConfig configures HTTPS for the API listener.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// CertFile and KeyFile are PEM files. They are re-read when their
	// modification time changes.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientCAFile enables mutual TLS: clients must present a certificate
	// signed by one of these CAs.
	ClientCAFile string `yaml:"client_ca_file"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`

	// Header carries the key, either as "Bearer <key>" in Authorization or
	// as the bare value of any other header.
	// Default: "Authorization"
	Header string `yaml:"header"`

	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig describes one API key. Only its SHA-256 digest is configured.
type APIKeyConfig struct {
	Name string `yaml:"name"`

	// SHA256 is the hex digest of the key, as printed by
	// "warden keys api-key".
	SHA256 string `yaml:"sha256"`

	// Roles lists the route groups the key may call: evaluate, read, admin.
	Roles []string `yaml:"roles"`

	Disabled bool `yaml:"disabled"`
}

// ProfilesConfig contains configuration for policy profile sources.
type ProfilesConfig struct {
	// Builtin lists built-in profiles added to the catalog
	// ("eu-neurorights", "chile-neurorights", "phoenix-medical").
	Builtin []string `yaml:"builtin"`

	// Directory is a directory of profile documents (*.yaml, *.yml, *.json).
	Directory string `yaml:"directory"`

	// Watch reloads the directory catalog on change.
	Watch bool `yaml:"watch"`

	// DebounceInterval delays catalog reloads after file events.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// DefaultProfile binds corridors whose jurisdictions match no profile.
	DefaultProfile string `yaml:"default_profile"`

	// Git configures a git repository as profile source.
	Git GitConfig `yaml:"git"`
}

// GitConfig contains configuration for the git profile source.
type GitConfig struct {
	// Enabled turns the git source on.
	Enabled bool `yaml:"enabled"`

	// Repository is the clone URL.
	Repository string `yaml:"repository"`

	// Branch to track. Default: "main"
	Branch string `yaml:"branch"`

	// Path is the profile directory inside the repository. Default: "profiles"
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	LocalPath string `yaml:"local_path"`

	// Token authenticates HTTPS clones. Empty means anonymous.
	Token string `yaml:"token"`

	// Depth limits clone history. 0 clones the full history.
	Depth int `yaml:"depth"`

	// PollInterval is how often the remote is pulled. Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each clone or pull. Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig contains configuration for the audit ledger.
type LedgerConfig struct {
	// Backend selects storage: "memory", "file", "sqlite" or "postgres".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// File configures the JSON-lines file backend.
	File FileConfig `yaml:"file"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures the PostgreSQL backend.
	Postgres PostgresConfig `yaml:"postgres"`

	// SigningKeyPath is the PEM Ed25519 private key used to sign records.
	SigningKeyPath string `yaml:"signing_key_path"`

	// KeyID names the signing key in records. Default: "default"
	KeyID string `yaml:"key_id"`

	// PublicKeys maps key IDs to PEM public key paths accepted during
	// verification, in addition to the signing key.
	PublicKeys map[string]string `yaml:"public_keys"`

	// VerifyOnOpen verifies the whole chain when the ledger is opened.
	VerifyOnOpen bool `yaml:"verify_on_open"`

	// VerifySchedule is a cron expression for periodic chain verification.
	// Empty disables scheduled verification.
	VerifySchedule string `yaml:"verify_schedule"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	// Path of the ledger file. Default: "data/ledger.jsonl"
	Path string `yaml:"path"`

	// Sync fsyncs after every append. Default: true
	Sync bool `yaml:"sync"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path of the database file. Default: "data/ledger.db"
	Path string `yaml:"path"`

	// Driver selects "sqlite3" (cgo) or "sqlite" (pure Go). Default: "sqlite3"
	Driver string `yaml:"driver"`

	// WALMode enables write-ahead logging. Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a write waits for a lock. Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// SSLMode is passed to lib/pq. Default: "require"
	SSLMode string `yaml:"sslmode"`

	// MaxOpenConns limits the connection pool. Default: 5
	MaxOpenConns int `yaml:"max_open_conns"`
}

// GuardsConfig contains guard pipeline settings.
type GuardsConfig struct {
	// WarnBandRatio derives a warn band from a ceiling when a profile sets none.
	// Default: 0.15
	WarnBandRatio float64 `yaml:"warn_band_ratio"`

	// Timeout bounds one pipeline run. Default: 2s
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error". Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`

	// RedactSubjects masks subject references and credentials in logs.
	// Default: true
	RedactSubjects bool `yaml:"redact_subjects"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled exposes metrics. Default: true
	Enabled bool `yaml:"enabled"`

	// Path of the metrics endpoint. Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes metric names. Default: "warden"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns tracing on. Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address. Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled. Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName identifies this service. Default: "warden"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains configuration for health endpoints.
type HealthConfig struct {
	// CheckTimeout bounds each readiness check. Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
