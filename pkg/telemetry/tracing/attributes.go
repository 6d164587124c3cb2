package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys set on warden spans.
const (
	AttrCorridor    = attribute.Key("warden.corridor")
	AttrProposalID  = attribute.Key("warden.proposal_id")
	AttrProfile     = attribute.Key("warden.profile")
	AttrOutcome     = attribute.Key("warden.outcome")
	AttrDegraded    = attribute.Key("warden.degraded")
	AttrReasonCodes = attribute.Key("warden.reason_codes")
	AttrGuardCount  = attribute.Key("warden.guard_count")
	AttrSequence    = attribute.Key("warden.ledger.seq")
	AttrRecordCount = attribute.Key("warden.ledger.records")
)

