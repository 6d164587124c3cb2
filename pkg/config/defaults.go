package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8470"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1 << 20)

	DefaultTLSMinVersion     = "1.3"
	DefaultTLSReloadInterval = 5 * time.Minute
	DefaultAuthHeader        = "Authorization"

	// Profile defaults
	DefaultProfilesDebounce = 250 * time.Millisecond
	DefaultGitBranch        = "main"
	DefaultGitPath          = "profiles"
	DefaultGitLocalPath     = "data/profiles-repo"
	DefaultGitPollInterval  = time.Minute
	DefaultGitTimeout       = 30 * time.Second

	// Ledger defaults
	DefaultLedgerBackend        = "sqlite"
	DefaultLedgerFilePath       = "data/ledger.jsonl"
	DefaultLedgerFileSync       = true
	DefaultLedgerSQLitePath     = "data/ledger.db"
	DefaultLedgerSQLiteDriver   = "sqlite3"
	DefaultLedgerSQLiteWALMode  = true
	DefaultLedgerSQLiteBusy     = 5 * time.Second
	DefaultLedgerKeyID          = "default"
	DefaultPostgresPort         = 5432
	DefaultPostgresSSLMode      = "require"
	DefaultPostgresMaxOpenConns = 5

	// Guard defaults
	DefaultWarnBandRatio = 0.15
	DefaultGuardTimeout  = 2 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultRedactSubjects     = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "warden"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingService     = "warden"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultConfig returns a configuration with every default applied. Boolean
// options that default to true are only set here, so LoadConfig decodes the
// file over DefaultConfig to let a file switch them off.
func DefaultConfig() *Config {
	cfg := &Config{
		Profiles: ProfilesConfig{
			Builtin: []string{"eu-neurorights", "chile-neurorights", "phoenix-medical"},
		},
		Ledger: LedgerConfig{
			File:   FileConfig{Sync: DefaultLedgerFileSync},
			SQLite: SQLiteConfig{WALMode: DefaultLedgerSQLiteWALMode},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactSubjects: DefaultRedactSubjects},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReloadInterval
	}
	if cfg.Server.Auth.Header == "" {
		cfg.Server.Auth.Header = DefaultAuthHeader
	}

	// Profile defaults
	if cfg.Profiles.DebounceInterval == 0 {
		cfg.Profiles.DebounceInterval = DefaultProfilesDebounce
	}
	if cfg.Profiles.Git.Branch == "" {
		cfg.Profiles.Git.Branch = DefaultGitBranch
	}
	if cfg.Profiles.Git.Path == "" {
		cfg.Profiles.Git.Path = DefaultGitPath
	}
	if cfg.Profiles.Git.LocalPath == "" {
		cfg.Profiles.Git.LocalPath = DefaultGitLocalPath
	}
	if cfg.Profiles.Git.PollInterval == 0 {
		cfg.Profiles.Git.PollInterval = DefaultGitPollInterval
	}
	if cfg.Profiles.Git.Timeout == 0 {
		cfg.Profiles.Git.Timeout = DefaultGitTimeout
	}

	// Ledger defaults
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.File.Path == "" {
		cfg.Ledger.File.Path = DefaultLedgerFilePath
	}
	if cfg.Ledger.SQLite.Path == "" {
		cfg.Ledger.SQLite.Path = DefaultLedgerSQLitePath
	}
	if cfg.Ledger.SQLite.Driver == "" {
		cfg.Ledger.SQLite.Driver = DefaultLedgerSQLiteDriver
	}
	if cfg.Ledger.SQLite.BusyTimeout == 0 {
		cfg.Ledger.SQLite.BusyTimeout = DefaultLedgerSQLiteBusy
	}
	if cfg.Ledger.KeyID == "" {
		cfg.Ledger.KeyID = DefaultLedgerKeyID
	}
	if cfg.Ledger.Postgres.Port == 0 {
		cfg.Ledger.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Ledger.Postgres.SSLMode == "" {
		cfg.Ledger.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if cfg.Ledger.Postgres.MaxOpenConns == 0 {
		cfg.Ledger.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}

	// Guard defaults
	if cfg.Guards.WarnBandRatio == 0 {
		cfg.Guards.WarnBandRatio = DefaultWarnBandRatio
	}
	if cfg.Guards.Timeout == 0 {
		cfg.Guards.Timeout = DefaultGuardTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
