package evolution

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ConsentStatus is the consent state of a corridor at evaluation time.
type ConsentStatus string

const (
	// ConsentGranted means the subject has granted consent.
	ConsentGranted ConsentStatus = "granted"

	// ConsentRevoked means consent was withdrawn.
	ConsentRevoked ConsentStatus = "revoked"

	// ConsentPending means consent has been requested but not yet given.
	ConsentPending ConsentStatus = "pending"

	// ConsentConditional means consent was given subject to conditions.
	ConsentConditional ConsentStatus = "conditional"
)

// Valid reports whether s is one of the known consent states.
func (s ConsentStatus) Valid() bool {
	switch s {
	case ConsentGranted, ConsentRevoked, ConsentPending, ConsentConditional:
		return true
	}
	return false
}

// ParseConsentStatus parses a consent status case-insensitively.
func ParseConsentStatus(s string) (ConsentStatus, error) {
	status := ConsentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown consent status %q", s)
	}
	return status, nil
}

// MaxEvidenceTags is the largest number of tags an evidence bundle may carry.
const MaxEvidenceTags = 20

// EvidenceTag is a single piece of evidence about one domain.
type EvidenceTag struct {
	// Domain identifies what the tag measures (e.g., "neural.load").
	Domain string `json:"domain" yaml:"domain"`

	// Value is the point estimate.
	Value float64 `json:"value" yaml:"value"`

	// Distribution optionally carries samples behind Value.
	Distribution []float64 `json:"distribution,omitempty" yaml:"distribution,omitempty"`

	// Provenance records where the evidence came from.
	Provenance map[string]string `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// EvidenceBundle is the evidence attached to a proposal.
type EvidenceBundle struct {
	ID                  string        `json:"id" yaml:"id"`
	Tags                []EvidenceTag `json:"tags" yaml:"tags"`
	KnowledgeConfidence float64       `json:"knowledge_confidence" yaml:"knowledge_confidence"`
	Uncertainty         float64       `json:"uncertainty" yaml:"uncertainty"`
}

// EffectiveMargin is the knowledge confidence discounted by uncertainty.
func (b *EvidenceBundle) EffectiveMargin() float64 {
	return b.KnowledgeConfidence * (1 - b.Uncertainty)
}

// Digest returns the SHA-256 hex digest of the bundle's JSON encoding.
// encoding/json sorts map keys, so equal bundles always digest equally.
func (b *EvidenceBundle) Digest() string {
	data, err := json.Marshal(b)
	if err != nil {
		// Only non-finite floats fail to encode; Validate rejects those.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reference returns the evidence reference stored in audit records.
func (b *EvidenceBundle) Reference() string {
	return b.ID + "#" + b.Digest()
}

// CorridorContext is the consent and jurisdiction snapshot for a proposal.
type CorridorContext struct {
	CorridorID    string             `json:"corridor_id" yaml:"corridor_id"`
	Consent       ConsentStatus      `json:"consent" yaml:"consent"`
	Jurisdictions []string           `json:"jurisdictions,omitempty" yaml:"jurisdictions,omitempty"`
	EcoImpact     map[string]float64 `json:"eco_impact,omitempty" yaml:"eco_impact,omitempty"`

	// Credentials are opaque labels presented when the corridor's profile is resolved.
	Credentials []string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// EnvelopePair is a named numeric value before and after the proposed change.
type EnvelopePair struct {
	Name   string  `json:"name" yaml:"name"`
	Before float64 `json:"before" yaml:"before"`
	After  float64 `json:"after" yaml:"after"`
}

// Loosens reports whether the pair increases the value.
func (e EnvelopePair) Loosens() bool {
	return e.After > e.Before
}

// Proposal is a request to change the state of a subject.
type Proposal struct {
	// ID identifies the proposal. The engine assigns one when empty.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Subject is an opaque subject reference.
	Subject string `json:"subject" yaml:"subject"`

	Corridor    CorridorContext `json:"corridor" yaml:"corridor"`
	Evidence    EvidenceBundle  `json:"evidence" yaml:"evidence"`
	Description string          `json:"description" yaml:"description"`
	Envelopes   []EnvelopePair  `json:"envelopes" yaml:"envelopes"`

	// ModuleClass selects module-class ceilings from the profile (e.g., "bci").
	ModuleClass string `json:"module_class,omitempty" yaml:"module_class,omitempty"`

	// Capabilities are the modules or capabilities the change requests.
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	// WaivedRights lists rights the change asks the subject to give up.
	WaivedRights []string `json:"waived_rights,omitempty" yaml:"waived_rights,omitempty"`

	// Attributes carries flags read by custom constraint predicates.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Envelope returns the named envelope pair.
func (p *Proposal) Envelope(name string) (EnvelopePair, bool) {
	for _, e := range p.Envelopes {
		if e.Name == name {
			return e, true
		}
	}
	return EnvelopePair{}, false
}

// Attribute returns the attribute value, or "" when absent.
func (p *Proposal) Attribute(key string) string {
	if p.Attributes == nil {
		return ""
	}
	return p.Attributes[key]
}

// Flag reports whether a boolean attribute is set to "true".
func (p *Proposal) Flag(key string) bool {
	return strings.EqualFold(p.Attribute(key), "true")
}
