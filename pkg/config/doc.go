// Package config provides configuration management for Warden.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("warden.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("warden.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention WARDEN_SECTION_FIELD.
// For example:
//
//   - WARDEN_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - WARDEN_LEDGER_BACKEND overrides ledger.backend
//   - WARDEN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (DefaultConfig / ApplyDefaults)
//  2. YAML file values
//  3. Environment variables
//
// # Validation
//
// Validate reports every invalid field at once. A ledger backend other than
// memory needs ledger.signing_key_path, since an ephemeral key would leave
// records nobody can verify after a restart. Enabled TLS needs both cert_file
// and key_file, and every API key entry carries a hex sha256 digest of the key
// rather than the key itself.
package config
