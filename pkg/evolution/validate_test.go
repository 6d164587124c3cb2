package evolution

import (
	"math"
	"strings"
	"testing"
)

func validProposal() *Proposal {
	return &Proposal{
		Subject:     "subject-1",
		Description: "raise stimulation duty cycle",
		Corridor: CorridorContext{
			CorridorID:    "corridor-eu-1",
			Consent:       ConsentGranted,
			Jurisdictions: []string{"EU"},
		},
		Evidence: EvidenceBundle{
			ID:                  "bundle-1",
			Tags:                []EvidenceTag{{Domain: "neural.load", Value: 0.2}},
			KnowledgeConfidence: 0.9,
			Uncertainty:         0.1,
		},
		Envelopes: []EnvelopePair{{Name: "risk_index", Before: 0.12, After: 0.10}},
	}
}

func TestValidate_ValidProposal(t *testing.T) {
	if errs := Validate(validProposal()); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want no errors", errs)
	}
}

func TestValidate_Nil(t *testing.T) {
	errs := Validate(nil)
	if len(errs) != 1 || errs[0].Field != "proposal" {
		t.Fatalf("Validate(nil) = %v, want one proposal error", errs)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Proposal)
		field  string
	}{
		{"missing subject", func(p *Proposal) { p.Subject = " " }, "subject"},
		{"missing description", func(p *Proposal) { p.Description = "" }, "description"},
		{"missing corridor", func(p *Proposal) { p.Corridor.CorridorID = "" }, "corridor.corridor_id"},
		{"unknown consent", func(p *Proposal) { p.Corridor.Consent = "maybe" }, "corridor.consent"},
		{"no envelopes", func(p *Proposal) { p.Envelopes = nil }, "envelopes"},
		{"empty envelope name", func(p *Proposal) { p.Envelopes[0].Name = "" }, "envelopes[0].name"},
		{"negative after", func(p *Proposal) { p.Envelopes[0].After = -1 }, "envelopes[0].after"},
		{"NaN before", func(p *Proposal) { p.Envelopes[0].Before = math.NaN() }, "envelopes[0].before"},
		{"duplicate envelope", func(p *Proposal) {
			p.Envelopes = append(p.Envelopes, EnvelopePair{Name: "risk_index"})
		}, "envelopes[1].name"},
		{"missing evidence id", func(p *Proposal) { p.Evidence.ID = "" }, "evidence.id"},
		{"no tags", func(p *Proposal) { p.Evidence.Tags = nil }, "evidence.tags"},
		{"confidence out of range", func(p *Proposal) { p.Evidence.KnowledgeConfidence = 1.5 }, "evidence.knowledge_confidence"},
		{"uncertainty out of range", func(p *Proposal) { p.Evidence.Uncertainty = -0.1 }, "evidence.uncertainty"},
		{"duplicate tag domain", func(p *Proposal) {
			p.Evidence.Tags = append(p.Evidence.Tags, EvidenceTag{Domain: "neural.load"})
		}, "evidence.tags[1].domain"},
		{"infinite eco impact", func(p *Proposal) {
			p.Corridor.EcoImpact = map[string]float64{"energy": math.Inf(1)}
		}, "corridor.eco_impact.energy"},
		{"empty capability", func(p *Proposal) { p.Capabilities = []string{""} }, "capabilities[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProposal()
			tt.mutate(p)

			errs := Validate(p)
			if len(errs) == 0 {
				t.Fatal("Validate() returned no errors")
			}

			found := false
			for _, err := range errs {
				if err.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want error on field %q", errs, tt.field)
			}
		})
	}
}

func TestValidate_ReportsEveryError(t *testing.T) {
	p := validProposal()
	p.Subject = ""
	p.Description = ""
	p.Evidence.ID = ""

	errs := Validate(p)
	if len(errs) != 3 {
		t.Fatalf("len(Validate()) = %d, want 3: %v", len(errs), errs)
	}
	if !strings.Contains(errs.Error(), "3 errors") {
		t.Errorf("Error() = %q, want error count", errs.Error())
	}
}

func TestValidate_TooManyTags(t *testing.T) {
	p := validProposal()
	p.Evidence.Tags = nil
	for i := 0; i <= MaxEvidenceTags; i++ {
		p.Evidence.Tags = append(p.Evidence.Tags, EvidenceTag{Domain: string(rune('a' + i))})
	}

	errs := Validate(p)
	if len(errs) != 1 || errs[0].Field != "evidence.tags" {
		t.Fatalf("Validate() = %v, want single evidence.tags error", errs)
	}
}

func TestEvidenceBundle_EffectiveMargin(t *testing.T) {
	b := EvidenceBundle{KnowledgeConfidence: 0.8, Uncertainty: 0.25}
	if got := b.EffectiveMargin(); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("EffectiveMargin() = %v, want 0.6", got)
	}
}

func TestEvidenceBundle_Digest(t *testing.T) {
	a := validProposal().Evidence
	b := validProposal().Evidence

	if a.Digest() != b.Digest() {
		t.Error("Digest() differs for equal bundles")
	}
	if len(a.Digest()) != 64 {
		t.Errorf("len(Digest()) = %d, want 64", len(a.Digest()))
	}

	b.Tags[0].Value = 0.3
	if a.Digest() == b.Digest() {
		t.Error("Digest() equal for different bundles")
	}
	if !strings.HasPrefix(a.Reference(), "bundle-1#") {
		t.Errorf("Reference() = %q, want bundle-1# prefix", a.Reference())
	}
}

func TestParseConsentStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    ConsentStatus
		wantErr bool
	}{
		{"granted", ConsentGranted, false},
		{"Revoked", ConsentRevoked, false},
		{" pending ", ConsentPending, false},
		{"CONDITIONAL", ConsentConditional, false},
		{"unknown", "", true},
	}

	for _, tt := range tests {
		got, err := ParseConsentStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseConsentStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseConsentStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
