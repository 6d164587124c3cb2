package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/engine"
	"mercator-hq/warden/pkg/evolution"
)

var evaluateFlags struct {
	file string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one proposal and record the decision",
	Long: `Evaluate a proposal document (JSON or YAML) against the profile bound to its
corridor and append the decision to the configured ledger.

The command exits 0 when the change is allowed and 10 when it is rejected,
deferred or forbidden. Errors that prevent a decision use the exit codes of
the other commands (3 no usable profile, 5 ledger write failure).

Examples:
  # Evaluate a proposal file
  warden evaluate --file proposal.json

  # Read the proposal from stdin and print the record as JSON
  cat proposal.yaml | warden evaluate -f - -o json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.file, "file", "f", "", "proposal document, - for stdin")
	_ = evaluateCmd.MarkFlagRequired("file")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	proposal, err := readProposal(cmd.InOrStdin(), evaluateFlags.file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	dec, err := a.engine.Evaluate(ctx, proposal)
	if err != nil {
		return err
	}
	if err := printDecision(cmd, dec); err != nil {
		return err
	}
	return cli.CheckOutcome(dec.Outcome)
}

func printDecision(cmd *cobra.Command, dec *engine.Decision) error {
	if outputFormat == "" || outputFormat == string(cli.FormatText) {
		return printResult(cmd, cli.RecordText{Record: dec.Record})
	}
	return printResult(cmd, dec.Record)
}

// readProposal decodes a proposal from path, or from stdin when path is "-".
// JSON input is decoded strictly; anything else is read as YAML.
func readProposal(stdin io.Reader, path string) (*evolution.Proposal, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		// #nosec G304 - operator supplied proposal path.
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal: %w", err)
	}

	var p evolution.Proposal
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		err = dec.Decode(&p)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(trimmed))
		dec.KnownFields(true)
		err = dec.Decode(&p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode proposal: %w", err)
	}
	return &p, nil
}
