package evolution

import (
	"fmt"
	"math"
	"strings"
)

// Validate checks the structure of a proposal and returns every problem found.
// A nil result means the proposal may be handed to the guards.
func Validate(p *Proposal) ValidationErrors {
	if p == nil {
		return ValidationErrors{NewValidationError("proposal", "is required")}
	}

	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, NewValidationError(field, format, args...))
	}

	if strings.TrimSpace(p.Subject) == "" {
		add("subject", "is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		add("description", "is required")
	}

	// Corridor
	if strings.TrimSpace(p.Corridor.CorridorID) == "" {
		add("corridor.corridor_id", "is required")
	}
	if !p.Corridor.Consent.Valid() {
		add("corridor.consent", "unknown consent status %q", p.Corridor.Consent)
	}
	for name, v := range p.Corridor.EcoImpact {
		if !finite(v) {
			add("corridor.eco_impact."+name, "must be a finite number")
		}
	}

	errs = append(errs, validateEvidence(&p.Evidence)...)

	// Envelopes
	if len(p.Envelopes) == 0 {
		add("envelopes", "at least one envelope is required")
	}
	seen := make(map[string]bool, len(p.Envelopes))
	for i, e := range p.Envelopes {
		field := fmt.Sprintf("envelopes[%d]", i)
		if strings.TrimSpace(e.Name) == "" {
			add(field+".name", "is required")
		} else if seen[e.Name] {
			add(field+".name", "duplicate envelope %q", e.Name)
		}
		seen[e.Name] = true

		if !finite(e.Before) || e.Before < 0 {
			add(field+".before", "must be a finite non-negative number, got %v", e.Before)
		}
		if !finite(e.After) || e.After < 0 {
			add(field+".after", "must be a finite non-negative number, got %v", e.After)
		}
	}

	for i, c := range p.Capabilities {
		if strings.TrimSpace(c) == "" {
			add(fmt.Sprintf("capabilities[%d]", i), "must not be empty")
		}
	}

	return errs
}

func validateEvidence(b *EvidenceBundle) ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, NewValidationError(field, format, args...))
	}

	if strings.TrimSpace(b.ID) == "" {
		add("evidence.id", "is required")
	}
	if len(b.Tags) == 0 || len(b.Tags) > MaxEvidenceTags {
		add("evidence.tags", "must contain between 1 and %d tags, got %d", MaxEvidenceTags, len(b.Tags))
	}
	if !unitInterval(b.KnowledgeConfidence) {
		add("evidence.knowledge_confidence", "must be within [0,1], got %v", b.KnowledgeConfidence)
	}
	if !unitInterval(b.Uncertainty) {
		add("evidence.uncertainty", "must be within [0,1], got %v", b.Uncertainty)
	}

	domains := make(map[string]bool, len(b.Tags))
	for i, tag := range b.Tags {
		field := fmt.Sprintf("evidence.tags[%d]", i)
		if strings.TrimSpace(tag.Domain) == "" {
			add(field+".domain", "is required")
		} else if domains[tag.Domain] {
			add(field+".domain", "duplicate domain %q", tag.Domain)
		}
		domains[tag.Domain] = true

		if !finite(tag.Value) {
			add(field+".value", "must be a finite number")
		}
		for _, sample := range tag.Distribution {
			if !finite(sample) {
				add(field+".distribution", "must contain only finite numbers")
				break
			}
		}
	}

	return errs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func unitInterval(v float64) bool {
	return finite(v) && v >= 0 && v <= 1
}
