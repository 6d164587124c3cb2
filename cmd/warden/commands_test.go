package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"mercator-hq/warden/pkg/cli"
)

func init() {
	color.NoColor = true
}

// run executes the root command with fresh flag state and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, outputFormat, verbose = "", "text", false
	ledgerFlags.offset, ledgerFlags.limit = 0, 50
	ledgerFlags.format, ledgerFlags.pretty, ledgerFlags.progress = "json", false, false
	evaluateFlags.file = ""
	keysFlags.output, keysFlags.keyID, keysFlags.force = "./keys", "", false
	keysFlags.name, keysFlags.roles = "", nil
	serveFlags.listenAddress, serveFlags.logLevel, serveFlags.dryRun = "", "", false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

const proposalTemplate = `{
	"id": %q,
	"subject": "subject-1",
	"corridor": {"corridor_id": "corridor-eu", "consent": "granted", "jurisdictions": ["EU"]},
	"evidence": {"id": "ev-1", "tags": [{"domain": "neural.load", "value": 0.2}], "knowledge_confidence": 0.9, "uncertainty": 0.1},
	"description": "adjust stimulation amplitude",
	"envelopes": [{"name": "risk_index", "before": %g, "after": %g}]
}`

type workspace struct {
	dir    string
	config string
	ledger string
}

// newWorkspace generates a signing key and writes a configuration with a
// file-backed ledger signed by it.
func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	keyDir := filepath.Join(dir, "keys")

	if _, err := run(t, "keys", "generate", "--output-dir", keyDir, "--key-id", "test"); err != nil {
		t.Fatalf("keys generate failed: %v", err)
	}

	w := &workspace{
		dir:    dir,
		config: filepath.Join(dir, "warden.yaml"),
		ledger: filepath.Join(dir, "ledger", "audit.jsonl"),
	}
	cfg := fmt.Sprintf(`profiles:
  builtin: [eu-neurorights, chile-neurorights, phoenix-medical]
ledger:
  backend: file
  file:
    path: %s
  key_id: test
  signing_key_path: %s
telemetry:
  metrics:
    enabled: false
`, w.ledger, filepath.Join(keyDir, "test_private.pem"))
	writeFile(t, w.config, cfg)
	return w
}

func (w *workspace) proposal(t *testing.T, id string, before, after float64) string {
	t.Helper()
	path := filepath.Join(w.dir, id+".json")
	writeFile(t, path, fmt.Sprintf(proposalTemplate, id, before, after))
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", path, err)
	}
}

// seed records one allowed and one forbidden decision.
func (w *workspace) seed(t *testing.T) {
	t.Helper()
	if _, err := run(t, "--config", w.config, "evaluate", "-f", w.proposal(t, "p-allowed", 0.30, 0.28)); err != nil {
		t.Fatalf("evaluate allowed failed: %v", err)
	}
	_, err := run(t, "--config", w.config, "evaluate", "-f", w.proposal(t, "p-loosened", 0.12, 0.18))
	if code := cli.ExitCode(err); code != cli.ExitNotAllowed {
		t.Fatalf("evaluate loosened exit = %d (%v), want %d", code, err, cli.ExitNotAllowed)
	}
}

func TestEvaluate(t *testing.T) {
	w := newWorkspace(t)

	out, err := run(t, "--config", w.config, "evaluate", "-f", w.proposal(t, "p-1", 0.30, 0.28))
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	for _, want := range []string{"Record 0", "Outcome:   allowed", "Corridor:  corridor-eu"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "--config", w.config, "-o", "json", "evaluate", "-f", w.proposal(t, "p-2", 0.12, 0.18))
	if code := cli.ExitCode(err); code != cli.ExitNotAllowed {
		t.Fatalf("exit = %d (%v), want %d", code, err, cli.ExitNotAllowed)
	}
	var rec struct {
		Sequence int64  `json:"seq"`
		Outcome  string `json:"outcome"`
		PrevHash string `json:"prev_hash"`
	}
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if rec.Sequence != 1 || rec.Outcome != "forbidden" || rec.PrevHash == "" {
		t.Errorf("record = %+v, want seq 1 forbidden with prev hash", rec)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	w := newWorkspace(t)

	bad := filepath.Join(w.dir, "bad.json")
	writeFile(t, bad, `{"subjekt": "x"}`)
	if _, err := run(t, "--config", w.config, "evaluate", "-f", bad); err == nil {
		t.Error("evaluate accepted an unknown field")
	}

	good := w.proposal(t, "p-1", 0.3, 0.2)
	if _, err := run(t, "--config", filepath.Join(w.dir, "missing.yaml"), "evaluate", "-f", good); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("missing config exit = %d (%v), want %d", cli.ExitCode(err), err, cli.ExitConfig)
	}
}

func TestReadProposal_YAML(t *testing.T) {
	doc := `id: p-yaml
subject: subject-1
corridor:
  corridor_id: corridor-eu
  consent: granted
  jurisdictions: [EU]
description: yaml proposal
envelopes:
  - {name: risk_index, before: 0.3, after: 0.2}
`
	p, err := readProposal(strings.NewReader(doc), "-")
	if err != nil {
		t.Fatalf("readProposal() failed: %v", err)
	}
	if p.ID != "p-yaml" || len(p.Envelopes) != 1 {
		t.Errorf("proposal = %+v", p)
	}

	if _, err := readProposal(strings.NewReader("id: x\nunknown: 1\n"), "-"); err == nil {
		t.Error("readProposal() accepted an unknown YAML field")
	}
}

func TestLedgerCommands(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)

	out, err := run(t, "--config", w.config, "ledger", "verify")
	if err != nil {
		t.Fatalf("ledger verify failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Chain verified: 2 records") {
		t.Errorf("verify output = %q", out)
	}

	out, err = run(t, "--config", w.config, "ledger", "list")
	if err != nil {
		t.Fatalf("ledger list failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "forbidden") {
		t.Errorf("list output = %q", out)
	}

	out, err = run(t, "--config", w.config, "ledger", "list", "--offset", "1")
	if err != nil {
		t.Fatalf("ledger list --offset failed: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Errorf("list --offset 1 output = %q, want one line", out)
	}

	out, err = run(t, "--config", w.config, "ledger", "show", "1")
	if err != nil {
		t.Fatalf("ledger show failed: %v", err)
	}
	if !strings.Contains(out, "Record 1") || !strings.Contains(out, "p-loosened") {
		t.Errorf("show output = %q", out)
	}

	if _, err := run(t, "--config", w.config, "ledger", "show", "7"); err == nil {
		t.Error("ledger show accepted a missing record")
	}
	if _, err := run(t, "--config", w.config, "ledger", "show", "first"); err == nil {
		t.Error("ledger show accepted an invalid sequence")
	}
}

func TestLedgerExport(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)

	out, err := run(t, "--config", w.config, "ledger", "export", "--format", "json")
	if err != nil {
		t.Fatalf("export json failed: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode export: %v\n%s", err, out)
	}
	if len(records) != 2 || records[0]["proposal_id"] != "p-allowed" {
		t.Errorf("export = %v", records)
	}

	out, err = run(t, "--config", w.config, "ledger", "export", "--format", "csv", "--progress")
	if err != nil {
		t.Fatalf("export csv failed: %v", err)
	}
	if got := strings.Count(strings.TrimSpace(out), "\n"); got != 2 {
		t.Errorf("csv rows = %d, want header plus 2:\n%s", got+1, out)
	}

	if _, err := run(t, "--config", w.config, "ledger", "export", "--format", "xml"); err == nil {
		t.Error("export accepted an unknown format")
	}
}

func TestLedgerVerify_Tampered(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t)

	data, err := os.ReadFile(w.ledger)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	tampered := bytes.Replace(data, []byte(`"p-allowed"`), []byte(`"p-altered"`), 1)
	if bytes.Equal(tampered, data) {
		t.Fatal("ledger file does not contain the proposal ID")
	}
	writeFile(t, w.ledger, string(tampered))

	out, err := run(t, "--config", w.config, "-o", "json", "ledger", "verify")
	if code := cli.ExitCode(err); code != cli.ExitChainIntegrity {
		t.Fatalf("exit = %d (%v), want %d", code, err, cli.ExitChainIntegrity)
	}
	var res VerifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode verify output: %v\n%s", err, out)
	}
	if res.OK || res.Index == nil || *res.Index != 0 {
		t.Errorf("verify result = %+v, want failure at index 0", res)
	}
}

const candidateProfile = `
schema_version: 1
name: eu-neurorights
version: %s
authority: EU AI Act
effective_date: 2026-01-01T00:00:00Z
jurisdictions: [EU]
minimum_rights: [right_to_consent]
envelopes:
  risk_index: {kind: risk, ceiling: 0.30}
`

func TestProfileCommands(t *testing.T) {
	w := newWorkspace(t)

	out, err := run(t, "--config", w.config, "profile", "list")
	if err != nil {
		t.Fatalf("profile list failed: %v", err)
	}
	for _, name := range []string{"chile-neurorights", "eu-neurorights", "phoenix-medical"} {
		if !strings.Contains(out, name) {
			t.Errorf("list output missing %s:\n%s", name, out)
		}
	}

	out, err = run(t, "--config", w.config, "profile", "show", "eu-neurorights")
	if err != nil {
		t.Fatalf("profile show failed: %v", err)
	}
	if !strings.Contains(out, "name: eu-neurorights") {
		t.Errorf("show output = %q", out)
	}
	if _, err := run(t, "--config", w.config, "profile", "show", "nowhere"); err == nil {
		t.Error("profile show accepted an unknown profile")
	}

	valid := filepath.Join(w.dir, "valid.yaml")
	writeFile(t, valid, fmt.Sprintf(candidateProfile, "2.0.0"))
	invalid := filepath.Join(w.dir, "invalid.yaml")
	writeFile(t, invalid, "name: broken\n")

	out, err = run(t, "--config", w.config, "profile", "validate", valid)
	if err != nil {
		t.Fatalf("profile validate failed: %v", err)
	}
	if !strings.Contains(out, "✓") {
		t.Errorf("validate output = %q", out)
	}
	out, err = run(t, "--config", w.config, "profile", "validate", valid, invalid)
	if code := cli.ExitCode(err); code != cli.ExitProfile {
		t.Errorf("validate invalid exit = %d (%v), want %d", code, err, cli.ExitProfile)
	}
	if !strings.Contains(out, "✗ "+invalid) {
		t.Errorf("validate output = %q", out)
	}
}

func TestProfileDiff(t *testing.T) {
	w := newWorkspace(t)

	tests := []struct {
		name    string
		version string
		want    string
	}{
		// The candidate drops forbidden capabilities and custom constraints.
		{"relaxed", "2.0.0", "relaxed"},
		{"stale version", "1.0.0", "cannot supersede"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(w.dir, strings.ReplaceAll(tt.name, " ", "-")+".yaml")
			writeFile(t, path, fmt.Sprintf(candidateProfile, tt.version))

			out, err := run(t, "--config", w.config, "profile", "diff", "eu-neurorights", path)
			if code := cli.ExitCode(err); code != cli.ExitDowngrade {
				t.Fatalf("exit = %d (%v), want %d", code, err, cli.ExitDowngrade)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestServeDryRun(t *testing.T) {
	w := newWorkspace(t)

	out, err := run(t, "--config", w.config, "serve", "--dry-run")
	if err != nil {
		t.Fatalf("serve --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "Configuration valid (3 profiles, file ledger)") {
		t.Errorf("dry-run output = %q", out)
	}
}
