package profile

import (
	"fmt"
	"sort"
	"strconv"
)

// CompareStrictness lists every constraint on which next is looser than old.
// An empty result means next is at least as strict as old on every shared
// constraint. Constraints that next adds are never relaxations.
func CompareStrictness(old, next *Profile) []Relaxation {
	var out []Relaxation
	relax := func(constraint, o, n string) {
		out = append(out, Relaxation{Constraint: constraint, Old: o, New: n})
	}

	for _, name := range old.EnvelopeNames() {
		oldRule := old.Envelopes[name]
		field := "envelopes." + name

		newRule, ok := next.Envelopes[name]
		if !ok {
			relax(field, "tracked", "removed")
			continue
		}
		if newRule.CeilingValue() > oldRule.CeilingValue() {
			relax(field+".ceiling", formatFloat(oldRule.CeilingValue()), formatFloat(newRule.CeilingValue()))
		}
		if newRule.WarnBandValue() < oldRule.WarnBandValue() {
			relax(field+".warn_band", formatFloat(oldRule.WarnBandValue()), formatFloat(newRule.WarnBandValue()))
		}
		if oldRule.MonotoneRequired() && !newRule.MonotoneRequired() {
			relax(field+".monotone", "true", "false")
		}
	}

	for _, class := range sortedKeys(old.ModuleClasses) {
		newLimits, ok := next.ModuleClasses[class]
		if !ok {
			relax("module_classes."+class, "present", "removed")
			continue
		}
		for _, envelope := range sortedKeys(old.ModuleClasses[class].Ceilings) {
			oldCeiling := old.ModuleClasses[class].Ceilings[envelope]
			field := fmt.Sprintf("module_classes.%s.ceilings.%s", class, envelope)

			newCeiling, ok := newLimits.Ceilings[envelope]
			if !ok {
				relax(field, formatFloat(oldCeiling), "removed")
				continue
			}
			if newCeiling > oldCeiling {
				relax(field, formatFloat(oldCeiling), formatFloat(newCeiling))
			}
		}
	}

	for _, c := range old.ForbiddenCapabilities {
		if !next.Forbids(c) {
			relax("forbidden_capabilities."+c, "forbidden", "allowed")
		}
	}
	for _, c := range old.RequiredCredentials {
		if !contains(next.RequiredCredentials, c) {
			relax("required_credentials."+c, "required", "removed")
		}
	}
	for _, r := range old.MinimumRights {
		if !next.ProtectsRight(r) {
			relax("minimum_rights."+r, "protected", "removed")
		}
	}

	if old.Consent.RequiredForFullAllow && !next.Consent.RequiredForFullAllow {
		relax("consent.required_for_full_allow", "true", "false")
	}
	if looserAction(old.Consent.OnPending, next.Consent.OnPending) {
		relax("consent.on_pending", string(old.Consent.OnPending), string(next.Consent.OnPending))
	}
	if looserAction(old.Consent.OnConditional, next.Consent.OnConditional) {
		relax("consent.on_conditional", string(old.Consent.OnConditional), string(next.Consent.OnConditional))
	}

	newConstraints := make(map[string]CustomConstraint, len(next.CustomConstraints))
	for _, c := range next.CustomConstraints {
		newConstraints[c.Name] = c
	}
	for _, oc := range old.CustomConstraints {
		field := "custom_constraints." + oc.Name
		nc, ok := newConstraints[oc.Name]
		if !ok {
			relax(field, oc.Predicate, "removed")
			continue
		}
		if nc.Predicate != oc.Predicate {
			relax(field+".predicate", oc.Predicate, nc.Predicate)
			continue
		}
		if looserThreshold(oc, nc) {
			relax(field+".threshold", formatFloat(oc.Threshold), formatFloat(nc.Threshold))
		}
		if nc.Value != oc.Value {
			relax(field+".value", oc.Value, nc.Value)
		}
		if looserAction(oc.Verdict, nc.Verdict) {
			relax(field+".verdict", string(oc.Verdict), string(nc.Verdict))
		}
	}

	return out
}

// AtLeastAsStrict reports whether next relaxes nothing in old.
func AtLeastAsStrict(old, next *Profile) bool {
	return len(CompareStrictness(old, next)) == 0
}

// CheckSupersede validates that next may replace old: it must be valid, have a
// strictly greater version, not take effect earlier, and relax nothing.
func CheckSupersede(old, next *Profile) error {
	if old == nil || next == nil {
		return &PolicyDowngradeError{Cause: fmt.Errorf("both profiles are required")}
	}

	downgrade := &PolicyDowngradeError{Old: old.Ref(), New: next.Ref()}

	if err := Validate(next); err != nil {
		downgrade.Cause = err
		return downgrade
	}

	cmp, err := CompareVersions(next.Version, old.Version)
	if err != nil {
		downgrade.Cause = err
		return downgrade
	}
	if cmp <= 0 {
		downgrade.Cause = fmt.Errorf("version %s does not follow %s", next.Version, old.Version)
		return downgrade
	}
	if next.EffectiveDate.Before(old.EffectiveDate) {
		downgrade.Cause = fmt.Errorf("effective date %s precedes %s",
			next.EffectiveDate.Format("2006-01-02"), old.EffectiveDate.Format("2006-01-02"))
		return downgrade
	}

	if relaxations := CompareStrictness(old, next); len(relaxations) > 0 {
		downgrade.Relaxations = relaxations
		return downgrade
	}
	return nil
}

// looserAction reports whether next is a weaker action than old. An unset
// action in old places no constraint.
func looserAction(old, next Action) bool {
	if old == "" {
		return false
	}
	return next.Severity() < old.Severity()
}

func looserThreshold(old, next CustomConstraint) bool {
	ordering, _ := LookupPredicate(old.Predicate)
	switch ordering {
	case OrderingHigherIsStricter:
		return next.Threshold < old.Threshold
	case OrderingLowerIsStricter:
		return next.Threshold > old.Threshold
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
