package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WARDEN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over DefaultConfig, remaining zero values are defaulted,
// and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. An empty path starts from DefaultConfig.
//
// The loading sequence is:
// 1. Load YAML from file (or defaults)
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Profile overrides
	if val := os.Getenv(EnvPrefix + "PROFILES_BUILTIN"); val != "" {
		cfg.Profiles.Builtin = splitList(val)
	}
	envString("PROFILES_DIRECTORY", &cfg.Profiles.Directory)
	envBool("PROFILES_WATCH", &cfg.Profiles.Watch)
	envString("PROFILES_DEFAULT_PROFILE", &cfg.Profiles.DefaultProfile)
	envBool("PROFILES_GIT_ENABLED", &cfg.Profiles.Git.Enabled)
	envString("PROFILES_GIT_REPOSITORY", &cfg.Profiles.Git.Repository)
	envString("PROFILES_GIT_BRANCH", &cfg.Profiles.Git.Branch)
	envString("PROFILES_GIT_TOKEN", &cfg.Profiles.Git.Token)

	// Ledger overrides
	envString("LEDGER_BACKEND", &cfg.Ledger.Backend)
	envString("LEDGER_FILE_PATH", &cfg.Ledger.File.Path)
	envString("LEDGER_SQLITE_PATH", &cfg.Ledger.SQLite.Path)
	envString("LEDGER_SQLITE_DRIVER", &cfg.Ledger.SQLite.Driver)
	envString("LEDGER_POSTGRES_HOST", &cfg.Ledger.Postgres.Host)
	envInt("LEDGER_POSTGRES_PORT", &cfg.Ledger.Postgres.Port)
	envString("LEDGER_POSTGRES_DATABASE", &cfg.Ledger.Postgres.Database)
	envString("LEDGER_POSTGRES_USER", &cfg.Ledger.Postgres.User)
	envString("LEDGER_POSTGRES_PASSWORD", &cfg.Ledger.Postgres.Password)
	envString("LEDGER_POSTGRES_SSLMODE", &cfg.Ledger.Postgres.SSLMode)
	envString("LEDGER_SIGNING_KEY_PATH", &cfg.Ledger.SigningKeyPath)
	envString("LEDGER_KEY_ID", &cfg.Ledger.KeyID)
	envBool("LEDGER_VERIFY_ON_OPEN", &cfg.Ledger.VerifyOnOpen)
	envString("LEDGER_VERIFY_SCHEDULE", &cfg.Ledger.VerifySchedule)

	// Guard overrides
	if val := os.Getenv(EnvPrefix + "GUARDS_WARN_BAND_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Guards.WarnBandRatio = f
		}
	}
	envDuration("GUARDS_TIMEOUT", &cfg.Guards.Timeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
