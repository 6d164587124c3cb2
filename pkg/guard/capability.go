package guard

import "strings"

// CapabilityGuard forbids proposals requesting a capability the profile
// names as forbidden.
type CapabilityGuard struct{}

// Name implements Guard.
func (CapabilityGuard) Name() string { return "capability" }

// Evaluate implements Guard.
func (g CapabilityGuard) Evaluate(in *Input) Verdict {
	var hits []string
	for _, c := range in.Proposal.Capabilities {
		if in.Profile.Forbids(c) {
			hits = append(hits, c)
		}
	}
	if len(hits) > 0 {
		return verdict(g.Name(), Forbid, ReasonForbiddenCapability,
			"forbidden capabilities requested: %s", strings.Join(hits, ", "))
	}
	return Allow(g.Name())
}

// RightsFloorGuard forbids proposals that ask the subject to waive a right
// in the profile's non-derogable minimum set.
type RightsFloorGuard struct{}

// Name implements Guard.
func (RightsFloorGuard) Name() string { return "rights_floor" }

// Evaluate implements Guard.
func (g RightsFloorGuard) Evaluate(in *Input) Verdict {
	var hits []string
	for _, r := range in.Proposal.WaivedRights {
		if in.Profile.ProtectsRight(r) {
			hits = append(hits, r)
		}
	}
	if len(hits) > 0 {
		return verdict(g.Name(), Forbid, ReasonRightsWaiver,
			"non-derogable rights cannot be waived: %s", strings.Join(hits, ", "))
	}
	return Allow(g.Name())
}
