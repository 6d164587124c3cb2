package guard

import (
	"mercator-hq/warden/pkg/evolution"
	"mercator-hq/warden/pkg/profile"
)

// ConsentGuard checks the corridor's consent status. Revoked consent is
// always forbidden. Pending and conditional consent follow the profile's
// consent policy when consent is required for a full allow.
type ConsentGuard struct{}

// Name implements Guard.
func (ConsentGuard) Name() string { return "consent" }

// Evaluate implements Guard.
func (g ConsentGuard) Evaluate(in *Input) Verdict {
	policy := in.Profile.Consent
	status := in.Proposal.Corridor.Consent

	switch status {
	case evolution.ConsentGranted:
		return Allow(g.Name())
	case evolution.ConsentRevoked:
		return verdict(g.Name(), Forbid, ReasonConsentRevoked, "consent revoked for corridor %q", in.Proposal.Corridor.CorridorID)
	case evolution.ConsentPending:
		if !policy.RequiredForFullAllow {
			return Allow(g.Name())
		}
		return verdict(g.Name(), KindForAction(orDegrade(policy.OnPending)), ReasonConsentPending, "consent pending")
	case evolution.ConsentConditional:
		if !policy.RequiredForFullAllow {
			return Allow(g.Name())
		}
		return verdict(g.Name(), KindForAction(orDegrade(policy.OnConditional)), ReasonConsentConditional, "consent conditional")
	}

	// Validation rejects unknown statuses; fail closed if one slips through.
	return verdict(g.Name(), Forbid, ReasonGuardFailure, "unknown consent status %q", status)
}

func orDegrade(a profile.Action) profile.Action {
	if a == "" {
		return profile.ActionDegrade
	}
	return a
}
