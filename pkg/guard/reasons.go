package guard

// Machine-readable reason codes carried by verdicts and audit records.
const (
	ReasonCeilingViolation    = "CEILING_VIOLATION"
	ReasonNearCeiling         = "NEAR_CEILING"
	ReasonEnvelopeLoosened    = "ENVELOPE_LOOSENED"
	ReasonForbiddenCapability = "FORBIDDEN_CAPABILITY"
	ReasonConsentRevoked      = "CONSENT_REVOKED"
	ReasonConsentPending      = "CONSENT_PENDING"
	ReasonConsentConditional  = "CONSENT_CONDITIONAL"
	ReasonRightsWaiver        = "RIGHTS_WAIVER_FORBIDDEN"
	ReasonCustomConstraint    = "CUSTOM_CONSTRAINT_VIOLATED"
	ReasonGuardFailure        = "GUARD_FAILURE"
	ReasonGuardTimeout        = "GUARD_TIMEOUT"

	// ReasonInvalidProposal marks structurally invalid proposals. It is not
	// produced by a guard; proposals carrying it never reach the pipeline.
	ReasonInvalidProposal = "INVALID_PROPOSAL"
)

// Mitigations the caller must apply for non-Forbid warning verdicts.
const (
	MitigationDegradePrecision = "degrade_precision"
	MitigationPauseAndRest     = "pause_and_rest"
)
