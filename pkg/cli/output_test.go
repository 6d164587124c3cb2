package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/ledger"
)

func init() {
	color.NoColor = true
}

func sampleRecord() *ledger.Record {
	ceiling := 0.7
	return &ledger.Record{
		Sequence:  3,
		ID:        "rec-3",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Draft: ledger.Draft{
			Subject:    "subject-1",
			Corridor:   "corridor-eu",
			ProposalID: "p-1",
			Evidence:   "ev-1#abc",
			Policy:     "eu-neurorights@1.0.0#0123456789ab",
			Decision:   "lower risk",
			Envelopes: []ledger.EnvelopeState{
				{Name: "risk_index", Before: 0.4, After: 0.3, Baseline: 0.4, Ceiling: &ceiling, Monotone: true},
			},
			Outcome:     guard.OutcomeForbidden,
			ReasonCodes: []string{guard.ReasonCeilingViolation},
			Verdicts: []guard.Verdict{
				guard.Allow("capability"),
				{Guard: "ceiling", Kind: guard.Forbid, Reason: guard.ReasonCeilingViolation, Message: "risk_index above ceiling"},
			},
		},
		PrevHash: ledger.Genesis,
		KeyID:    "test",
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatText).FormatTo(buf, "plain"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "plain\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}

	buf.Reset()
	if err := NewFormatter(FormatText).FormatTo(buf, RecordText{sampleRecord()}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Record 3  rec-3",
		"Outcome:   forbidden",
		"Reasons:   CEILING_VIOLATION",
		"risk_index 0.4 -> 0.3 (baseline 0.4, ceiling 0.7)",
		"ceiling forbid risk_index above ceiling",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "capability allow_full") {
		t.Error("allow verdicts should be omitted")
	}
}

func TestRecordList(t *testing.T) {
	buf := &bytes.Buffer{}
	list := RecordList{sampleRecord(), sampleRecord()}
	if err := list.WriteText(buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "corridor-eu") || !strings.Contains(lines[0], "CEILING_VIOLATION") {
		t.Errorf("line = %q", lines[0])
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatJSON).FormatTo(buf, sampleRecord()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["outcome"] != "forbidden" || decoded["seq"] != float64(3) {
		t.Errorf("decoded = %v", decoded)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
}

func TestYAMLFormatterUsesJSONNames(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatYAML).FormatTo(buf, sampleRecord()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "{") {
		t.Errorf("YAML output should use block style:\n%s", out)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded["prev_hash"] != ledger.Genesis {
		t.Errorf("prev_hash = %v", decoded["prev_hash"])
	}
	if decoded["proposal_id"] != "p-1" {
		t.Errorf("proposal_id = %v", decoded["proposal_id"])
	}
}

func TestOutcome(t *testing.T) {
	if got := Outcome(guard.OutcomeAllowed); got != "allowed" {
		t.Errorf("Outcome() = %q with colour disabled", got)
	}
	if got := Outcome(guard.Outcome("other")); got != "other" {
		t.Errorf("Outcome() = %q", got)
	}
}

func TestStatusLines(t *testing.T) {
	buf := &bytes.Buffer{}
	Success(buf, "chain verified (%d records)", 4)
	Failure(buf, "broken at %d", 2)
	if buf.String() != "✓ chain verified (4 records)\n✗ broken at 2\n" {
		t.Errorf("output = %q", buf.String())
	}
}
