package guard

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"mercator-hq/warden/pkg/profile"
)

// Predicate reports whether a custom constraint is violated by the input,
// with a short detail for the verdict message.
type Predicate func(in *Input, c profile.CustomConstraint) (violated bool, detail string)

var (
	predicateMu    sync.RWMutex
	predicateFuncs = map[string]Predicate{
		profile.PredicateNoNeuralExport:     noNeuralExport,
		profile.PredicateNoCoerciveUptake:   noCoerciveUptake,
		profile.PredicateMinKnowledgeFactor: minKnowledgeFactor,
		profile.PredicateMaxUncertainty:     maxUncertainty,
		profile.PredicateMinEffectiveMargin: minEffectiveMargin,
		profile.PredicateMaxEcoImpact:       maxEcoImpact,
	}
)

// RegisterPredicate adds a predicate to the table and declares it to the
// profile package so that profiles referencing it pass validation.
func RegisterPredicate(name string, ordering profile.Ordering, fn Predicate) {
	predicateMu.Lock()
	predicateFuncs[name] = fn
	predicateMu.Unlock()

	profile.RegisterPredicate(name, ordering)
}

func lookupPredicate(name string) (Predicate, bool) {
	predicateMu.RLock()
	defer predicateMu.RUnlock()
	fn, ok := predicateFuncs[name]
	return fn, ok
}

// CustomGuard evaluates one profile custom constraint.
type CustomGuard struct {
	Constraint profile.CustomConstraint
}

// Name implements Guard.
func (g CustomGuard) Name() string { return "custom:" + g.Constraint.Name }

// Evaluate implements Guard.
func (g CustomGuard) Evaluate(in *Input) Verdict {
	fn, ok := lookupPredicate(g.Constraint.Predicate)
	if !ok {
		return verdict(g.Name(), Forbid, ReasonGuardFailure, "unknown predicate %q", g.Constraint.Predicate)
	}

	violated, detail := fn(in, g.Constraint)
	if !violated {
		return Allow(g.Name())
	}

	reason := g.Constraint.ReasonCode
	if reason == "" {
		reason = ReasonCustomConstraint
	}
	return verdict(g.Name(), KindForAction(g.Constraint.Verdict), reason, "constraint %s violated: %s", g.Constraint.Name, detail)
}

func noNeuralExport(in *Input, _ profile.CustomConstraint) (bool, string) {
	if in.Proposal.Flag("neural_export") {
		return true, "proposal exports neural data"
	}
	for _, c := range in.Proposal.Capabilities {
		if c == "neural_export" {
			return true, "neural_export capability requested"
		}
	}
	return false, ""
}

// noCoerciveUptake flags essential services conditioned on augmentation.
func noCoerciveUptake(in *Input, _ profile.CustomConstraint) (bool, string) {
	if in.Proposal.Flag("essential_service") && in.Proposal.Flag("requires_augmentation") {
		return true, "essential service requires augmentation"
	}
	return false, ""
}

func minKnowledgeFactor(in *Input, c profile.CustomConstraint) (bool, string) {
	k := in.Proposal.Evidence.KnowledgeConfidence
	if k < c.Threshold {
		return true, fmt.Sprintf("knowledge confidence %g below %g", k, c.Threshold)
	}
	return false, ""
}

func maxUncertainty(in *Input, c profile.CustomConstraint) (bool, string) {
	u := in.Proposal.Evidence.Uncertainty
	if u > c.Threshold {
		return true, fmt.Sprintf("uncertainty %g above %g", u, c.Threshold)
	}
	return false, ""
}

func minEffectiveMargin(in *Input, c profile.CustomConstraint) (bool, string) {
	m := in.Proposal.Evidence.EffectiveMargin()
	if m < c.Threshold {
		return true, fmt.Sprintf("effective margin %g below %g", m, c.Threshold)
	}
	return false, ""
}

// maxEcoImpact checks the metric named by the constraint value, or every
// corridor metric when no value is set.
func maxEcoImpact(in *Input, c profile.CustomConstraint) (bool, string) {
	impact := in.Proposal.Corridor.EcoImpact
	if c.Value != "" {
		if v, ok := impact[c.Value]; ok && v > c.Threshold {
			return true, fmt.Sprintf("%s=%g above %g", c.Value, v, c.Threshold)
		}
		return false, ""
	}

	var over []string
	for metric, v := range impact {
		if v > c.Threshold {
			over = append(over, fmt.Sprintf("%s=%g", metric, v))
		}
	}
	if len(over) == 0 {
		return false, ""
	}
	sort.Strings(over)
	return true, fmt.Sprintf("%s above %g", strings.Join(over, ", "), c.Threshold)
}
