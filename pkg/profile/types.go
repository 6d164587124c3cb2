package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"time"
)

// SchemaVersion is the profile document schema understood by this engine.
const SchemaVersion = 1

// DefaultWarnBandRatio is the fraction of a ceiling used as warn band when a
// profile does not set one.
const DefaultWarnBandRatio = 0.15

// EnvelopeKind classifies a tracked envelope.
type EnvelopeKind string

const (
	// KindRisk envelopes must declare an absolute ceiling.
	KindRisk EnvelopeKind = "risk"

	// KindRights envelopes track rights erosion.
	KindRights EnvelopeKind = "rights"

	// KindResource envelopes track resource usage such as duty cycle.
	KindResource EnvelopeKind = "resource"
)

// Action is the verdict a policy rule asks for when it is triggered.
type Action string

const (
	// ActionDegrade allows the change at reduced precision.
	ActionDegrade Action = "degrade"

	// ActionPause defers the change.
	ActionPause Action = "pause"

	// ActionForbid denies the change.
	ActionForbid Action = "forbid"
)

// Severity orders actions: degrade < pause < forbid. Unknown actions are -1.
func (a Action) Severity() int {
	switch a {
	case ActionDegrade:
		return 1
	case ActionPause:
		return 2
	case ActionForbid:
		return 3
	}
	return -1
}

// EnvelopeRule configures one tracked envelope.
type EnvelopeRule struct {
	Kind EnvelopeKind `yaml:"kind" json:"kind"`

	// Ceiling is the absolute limit. Nil means no ceiling.
	Ceiling *float64 `yaml:"ceiling,omitempty" json:"ceiling,omitempty"`

	// WarnBand is the distance below the ceiling at which precision is degraded.
	WarnBand *float64 `yaml:"warn_band,omitempty" json:"warn_band,omitempty"`

	// Monotone requires the value never to increase. Defaults to true.
	Monotone *bool `yaml:"monotone,omitempty" json:"monotone,omitempty"`
}

// MonotoneRequired reports whether the envelope may only decrease.
func (r EnvelopeRule) MonotoneRequired() bool {
	return r.Monotone == nil || *r.Monotone
}

// CeilingValue returns the ceiling, or +Inf when none is set.
func (r EnvelopeRule) CeilingValue() float64 {
	if r.Ceiling == nil {
		return math.Inf(1)
	}
	return *r.Ceiling
}

// WarnBandValue returns the warn band, or 0 when none is set.
func (r EnvelopeRule) WarnBandValue() float64 {
	if r.WarnBand == nil {
		return 0
	}
	return *r.WarnBand
}

// ModuleClassLimits holds ceilings that apply to one module class.
type ModuleClassLimits struct {
	Ceilings map[string]float64 `yaml:"ceilings" json:"ceilings"`
}

// ConsentPolicy says how non-granted consent is treated.
type ConsentPolicy struct {
	RequiredForFullAllow bool   `yaml:"required_for_full_allow" json:"required_for_full_allow"`
	OnPending            Action `yaml:"on_pending,omitempty" json:"on_pending,omitempty"`
	OnConditional        Action `yaml:"on_conditional,omitempty" json:"on_conditional,omitempty"`
}

// CustomConstraint binds a registered predicate to a threshold and an action.
type CustomConstraint struct {
	Name       string  `yaml:"name" json:"name"`
	Predicate  string  `yaml:"predicate" json:"predicate"`
	Threshold  float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Value      string  `yaml:"value,omitempty" json:"value,omitempty"`
	Verdict    Action  `yaml:"verdict" json:"verdict"`
	ReasonCode string  `yaml:"reason_code,omitempty" json:"reason_code,omitempty"`
}

// Profile is a versioned set of jurisdiction-specific constraints.
type Profile struct {
	SchemaVersion int       `yaml:"schema_version" json:"schema_version"`
	Name          string    `yaml:"name" json:"name"`
	Version       string    `yaml:"version" json:"version"`
	Authority     string    `yaml:"authority" json:"authority"`
	EffectiveDate time.Time `yaml:"effective_date" json:"effective_date"`

	Jurisdictions       []string `yaml:"jurisdictions,omitempty" json:"jurisdictions,omitempty"`
	RequiredCredentials []string `yaml:"required_credentials,omitempty" json:"required_credentials,omitempty"`

	ForbiddenCapabilities []string                     `yaml:"forbidden_capabilities,omitempty" json:"forbidden_capabilities,omitempty"`
	MinimumRights         []string                     `yaml:"minimum_rights,omitempty" json:"minimum_rights,omitempty"`
	Envelopes             map[string]EnvelopeRule      `yaml:"envelopes,omitempty" json:"envelopes,omitempty"`
	ModuleClasses         map[string]ModuleClassLimits `yaml:"module_classes,omitempty" json:"module_classes,omitempty"`
	Consent               ConsentPolicy                `yaml:"consent" json:"consent"`
	CustomConstraints     []CustomConstraint           `yaml:"custom_constraints,omitempty" json:"custom_constraints,omitempty"`

	// Digest is the SHA-256 of the normalized profile. Set by the loader.
	Digest string `yaml:"-" json:"-"`

	// Source records where the document came from (path, "builtin", git commit).
	Source string `yaml:"-" json:"-"`
}

// Ref returns the policy reference written to audit records.
func (p *Profile) Ref() string {
	digest := p.Digest
	if len(digest) > 12 {
		digest = digest[:12]
	}
	return p.Name + "@" + p.Version + "#" + digest
}

// Rule returns the envelope rule for name.
func (p *Profile) Rule(name string) (EnvelopeRule, bool) {
	rule, ok := p.Envelopes[name]
	return rule, ok
}

// EffectiveCeiling returns the lowest of the envelope ceiling and the
// module-class ceiling, or +Inf when neither is set.
func (p *Profile) EffectiveCeiling(envelope, moduleClass string) float64 {
	ceiling := math.Inf(1)
	if rule, ok := p.Envelopes[envelope]; ok {
		ceiling = rule.CeilingValue()
	}
	if limits, ok := p.ModuleClasses[moduleClass]; ok && moduleClass != "" {
		if c, ok := limits.Ceilings[envelope]; ok && c < ceiling {
			ceiling = c
		}
	}
	return ceiling
}

// Forbids reports whether capability is in the forbidden set.
func (p *Profile) Forbids(capability string) bool {
	return contains(p.ForbiddenCapabilities, capability)
}

// ProtectsRight reports whether right is in the minimum rights set.
func (p *Profile) ProtectsRight(right string) bool {
	return contains(p.MinimumRights, right)
}

// EnvelopeNames returns the tracked envelope names in sorted order.
func (p *Profile) EnvelopeNames() []string {
	names := make([]string, 0, len(p.Envelopes))
	for name := range p.Envelopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize fills defaults: warn bands derived from ceilings using ratio.
func (p *Profile) Normalize(ratio float64) {
	if ratio <= 0 {
		ratio = DefaultWarnBandRatio
	}
	for name, rule := range p.Envelopes {
		if rule.WarnBand == nil && rule.Ceiling != nil {
			band := *rule.Ceiling * ratio
			rule.WarnBand = &band
			p.Envelopes[name] = rule
		}
	}
}

// ComputeDigest hashes the profile's JSON encoding.
func (p *Profile) ComputeDigest() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
