package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Validate checks a profile against the schema and returns a
// *ProfileValidationError listing every problem, or nil.
func Validate(p *Profile) error {
	if p == nil {
		return NewProfileValidationError("", nil, "profile is nil")
	}

	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch {
	case p.SchemaVersion == 0:
		add("schema_version is required")
	case p.SchemaVersion > SchemaVersion:
		add("schema_version %d is newer than supported version %d", p.SchemaVersion, SchemaVersion)
	case p.SchemaVersion < 0:
		add("schema_version must be positive")
	}

	if strings.TrimSpace(p.Name) == "" {
		add("name is required")
	}
	if strings.TrimSpace(p.Version) == "" {
		add("version is required")
	} else if _, err := parseVersion(p.Version); err != nil {
		add("version: %v", err)
	}
	if strings.TrimSpace(p.Authority) == "" {
		add("authority is required")
	}
	if p.EffectiveDate.IsZero() {
		add("effective_date is required")
	}

	for i, c := range p.ForbiddenCapabilities {
		if strings.TrimSpace(c) == "" {
			add("forbidden_capabilities[%d] is empty", i)
		}
	}
	for i, r := range p.MinimumRights {
		if strings.TrimSpace(r) == "" {
			add("minimum_rights[%d] is empty", i)
		}
	}

	for _, name := range p.EnvelopeNames() {
		rule := p.Envelopes[name]
		field := "envelopes." + name

		switch rule.Kind {
		case KindRisk, KindRights, KindResource:
		default:
			add("%s.kind %q is not one of risk, rights, resource", field, rule.Kind)
		}

		if rule.Ceiling != nil && !(positive(*rule.Ceiling)) {
			add("%s.ceiling must be a positive finite number", field)
		}
		if rule.Kind == KindRisk && rule.Ceiling == nil {
			add("%s: risk envelopes require a ceiling", field)
		}
		if rule.WarnBand != nil {
			band := *rule.WarnBand
			if math.IsNaN(band) || band < 0 || band > rule.CeilingValue() {
				add("%s.warn_band must be within [0, ceiling]", field)
			}
		}
	}

	classes := make([]string, 0, len(p.ModuleClasses))
	for class := range p.ModuleClasses {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		for envelope, c := range p.ModuleClasses[class].Ceilings {
			if !positive(c) {
				add("module_classes.%s.ceilings.%s must be a positive finite number", class, envelope)
			}
		}
	}

	if p.Consent.OnPending != "" && p.Consent.OnPending.Severity() < 0 {
		add("consent.on_pending %q is not one of degrade, pause, forbid", p.Consent.OnPending)
	}
	if p.Consent.OnConditional != "" && p.Consent.OnConditional.Severity() < 0 {
		add("consent.on_conditional %q is not one of degrade, pause, forbid", p.Consent.OnConditional)
	}

	names := make(map[string]bool, len(p.CustomConstraints))
	for i, c := range p.CustomConstraints {
		field := fmt.Sprintf("custom_constraints[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			add("%s.name is required", field)
		} else if names[c.Name] {
			add("%s: duplicate constraint %q", field, c.Name)
		}
		names[c.Name] = true

		if _, ok := LookupPredicate(c.Predicate); !ok {
			add("%s.predicate %q is not registered", field, c.Predicate)
		}
		if c.Verdict.Severity() < 0 {
			add("%s.verdict %q is not one of degrade, pause, forbid", field, c.Verdict)
		}
		if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
			add("%s.threshold must be finite", field)
		}
	}

	if len(problems) > 0 {
		return &ProfileValidationError{Profile: p.Name, Source: p.Source, Problems: problems}
	}
	return nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
