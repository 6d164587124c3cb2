package api

import (
	"errors"
	"net/http"

	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/profile"
)

// Error codes returned in error bodies.
const (
	CodeBadRequest      = "bad_request"
	CodeNotFound        = "not_found"
	CodeTooLarge        = "request_too_large"
	CodeNoProfile       = "profile_unavailable"
	CodeDowngrade       = "policy_downgrade"
	CodeNotActive       = "profile_not_active"
	CodeLedgerWrite     = "ledger_write_failed"
	CodeChainIntegrity  = "chain_integrity"
	CodeInvalidDecision = "invalid_decision"
	CodeInternal        = "internal_error"
)

// ErrorResponse is the body of every error response. Error is human
// readable; Code is one of the Code constants.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to an HTTP status and error code. Ledger write
// failures are reported as 503 so callers retry the whole evaluation rather
// than treat it as a denial.
func statusFor(err error) (int, string) {
	var (
		pve       *profile.ProfileValidationError
		downgrade *profile.PolicyDowngradeError
		lwe       *ledger.LedgerWriteError
		cie       *ledger.ChainIntegrityError
		inv       *ledger.InvariantError
		tooLarge  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, CodeTooLarge
	case errors.As(err, &downgrade):
		return http.StatusConflict, CodeDowngrade
	case errors.Is(err, profile.ErrNotActive):
		return http.StatusConflict, CodeNotActive
	case errors.As(err, &pve):
		return http.StatusUnprocessableEntity, CodeNoProfile
	case errors.As(err, &lwe), errors.Is(err, ledger.ErrClosed):
		return http.StatusServiceUnavailable, CodeLedgerWrite
	case errors.As(err, &cie):
		return http.StatusConflict, CodeChainIntegrity
	case errors.As(err, &inv):
		return http.StatusInternalServerError, CodeInvalidDecision
	}
	return http.StatusInternalServerError, CodeInternal
}
