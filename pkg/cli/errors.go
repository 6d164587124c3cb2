package cli

import (
	"errors"
	"fmt"

	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/profile"
)

// Exit codes returned by the warden command.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitConfig         = 2
	ExitProfile        = 3
	ExitDowngrade      = 4
	ExitLedgerWrite    = 5
	ExitChainIntegrity = 6

	// ExitNotAllowed is returned by evaluate when the decision is not allowed.
	ExitNotAllowed = 10
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		configErr    *ConfigError
		downgradeErr *profile.PolicyDowngradeError
		profileErr   *profile.ProfileValidationError
		writeErr     *ledger.LedgerWriteError
		chainErr     *ledger.ChainIntegrityError
		outcomeErr   *OutcomeError
	)
	switch {
	case errors.As(err, &outcomeErr):
		return ExitNotAllowed
	case errors.As(err, &configErr):
		return ExitConfig
	case errors.As(err, &downgradeErr):
		return ExitDowngrade
	case errors.As(err, &profileErr):
		return ExitProfile
	case errors.As(err, &chainErr):
		return ExitChainIntegrity
	case errors.As(err, &writeErr), errors.Is(err, ledger.ErrClosed):
		return ExitLedgerWrite
	}
	return ExitError
}

// OutcomeError reports a decision that was recorded but not allowed.
type OutcomeError struct {
	Outcome guard.Outcome
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("decision %s", e.Outcome)
}

// CheckOutcome returns nil for an allowed decision and an *OutcomeError
// otherwise.
func CheckOutcome(o guard.Outcome) error {
	if o == guard.OutcomeAllowed {
		return nil
	}
	return &OutcomeError{Outcome: o}
}
