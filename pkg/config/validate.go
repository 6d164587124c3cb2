package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "ledger.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProfiles(&cfg.Profiles)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateGuards(&cfg.Guards)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: %v", cfg.ListenAddress, err),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must be positive"})
	}

	errs = append(errs, validateTLS(&cfg.TLS)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.CertFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "is required when TLS is enabled"})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "is required when TLS is enabled"})
	}
	switch cfg.MinVersion {
	case "1.2", "1.3":
	default:
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("unsupported version %q (must be 1.2 or 1.3)", cfg.MinVersion),
		})
	}
	if cfg.ReloadInterval < 0 {
		errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "must not be negative"})
	}
	return errs
}

var apiRoles = map[string]bool{"evaluate": true, "read": true, "admin": true}

func validateAuth(cfg *AuthConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if len(cfg.Keys) == 0 {
		errs = append(errs, FieldError{Field: "server.auth.keys", Message: "at least one key is required when auth is enabled"})
	}

	names := make(map[string]bool, len(cfg.Keys))
	for i, k := range cfg.Keys {
		field := fmt.Sprintf("server.auth.keys[%d]", i)
		if k.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "is required"})
		} else if names[k.Name] {
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate key name %q", k.Name)})
		}
		names[k.Name] = true

		if digest, err := hex.DecodeString(k.SHA256); err != nil || len(digest) != sha256.Size {
			errs = append(errs, FieldError{Field: field + ".sha256", Message: "must be a hex SHA-256 digest"})
		}
		if len(k.Roles) == 0 {
			errs = append(errs, FieldError{Field: field + ".roles", Message: "at least one role is required"})
		}
		for _, role := range k.Roles {
			if !apiRoles[role] {
				errs = append(errs, FieldError{
					Field:   field + ".roles",
					Message: fmt.Sprintf("unknown role %q (must be evaluate, read or admin)", role),
				})
			}
		}
	}
	return errs
}

func validateProfiles(cfg *ProfilesConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Builtin) == 0 && cfg.Directory == "" && !cfg.Git.Enabled {
		errs = append(errs, FieldError{
			Field:   "profiles",
			Message: "at least one profile source (builtin, directory, git) is required",
		})
	}
	if cfg.Watch && cfg.Directory == "" {
		errs = append(errs, FieldError{Field: "profiles.watch", Message: "requires profiles.directory"})
	}
	if cfg.Git.Enabled {
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{Field: "profiles.git.repository", Message: "is required when git is enabled"})
		}
		if cfg.Git.PollInterval < 0 {
			errs = append(errs, FieldError{Field: "profiles.git.poll_interval", Message: "must not be negative"})
		}
		if cfg.Git.Depth < 0 {
			errs = append(errs, FieldError{Field: "profiles.git.depth", Message: "must not be negative"})
		}
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "file":
		if cfg.File.Path == "" {
			errs = append(errs, FieldError{Field: "ledger.file.path", Message: "is required for the file backend"})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "ledger.sqlite.path", Message: "is required for the sqlite backend"})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "ledger.sqlite.driver",
				Message: fmt.Sprintf("must be sqlite3 or sqlite, got %q", cfg.SQLite.Driver),
			})
		}
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, FieldError{Field: "ledger.postgres.host", Message: "is required for the postgres backend"})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, FieldError{Field: "ledger.postgres.database", Message: "is required for the postgres backend"})
		}
		if cfg.Postgres.Port <= 0 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{Field: "ledger.postgres.port", Message: "must be between 1 and 65535"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "ledger.backend",
			Message: fmt.Sprintf("must be memory, file, sqlite or postgres, got %q", cfg.Backend),
		})
	}

	if cfg.VerifySchedule != "" {
		if _, err := cron.ParseStandard(cfg.VerifySchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "ledger.verify_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateGuards(cfg *GuardsConfig) []FieldError {
	var errs []FieldError

	if cfg.WarnBandRatio < 0 || cfg.WarnBandRatio >= 1 {
		errs = append(errs, FieldError{Field: "guards.warn_band_ratio", Message: "must be within [0, 1)"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "guards.timeout", Message: "must not be negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text, got %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "is required when tracing is enabled"})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be within [0, 1]"})
		}
	}

	return errs
}
