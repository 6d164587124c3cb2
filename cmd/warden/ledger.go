package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/ledger/export"
)

var ledgerFlags struct {
	offset   int64
	limit    int
	format   string
	pretty   bool
	progress bool
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and verify the audit ledger",
	Long: `Inspect, verify and export the hash-chained audit ledger.

Inspection commands need only the public keys in ledger.public_keys (or the
signing key); they never append to the ledger.

Subcommands:
  verify - Verify the whole chain
  list   - List records
  show   - Show one record
  export - Export records as JSON or CSV`,
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the whole chain",
	Long: `Walk the ledger from the first record and check every record's encoding,
sequence, previous hash, signature and invariants. The first broken record is
reported and the command exits 6.`,
	RunE: runLedgerVerify,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	RunE:  runLedgerList,
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <seq>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerShow,
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records as JSON or CSV",
	Long: `Stream records to stdout as a JSON array or CSV with a header row.

Examples:
  warden ledger export --format csv > audit.csv
  warden ledger export --format json --pretty --offset 1000 --progress > tail.json`,
	RunE: runLedgerExport,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd, ledgerListCmd, ledgerShowCmd, ledgerExportCmd)

	ledgerListCmd.Flags().Int64Var(&ledgerFlags.offset, "offset", 0, "first record")
	ledgerListCmd.Flags().IntVar(&ledgerFlags.limit, "limit", 50, "maximum records")

	ledgerExportCmd.Flags().Int64Var(&ledgerFlags.offset, "offset", 0, "first record")
	ledgerExportCmd.Flags().StringVar(&ledgerFlags.format, "format", "json", "export format: json, csv")
	ledgerExportCmd.Flags().BoolVar(&ledgerFlags.pretty, "pretty", false, "indent JSON output")
	ledgerExportCmd.Flags().BoolVar(&ledgerFlags.progress, "progress", false, "report progress on stderr")
}

// withLedger opens the configured ledger read-only for fn.
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, l *ledger.Ledger, keys *ledger.KeyRing) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := setupLogging(cfg, true); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	l, keys, err := openReadOnly(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	return fn(ctx, l, keys)
}

// VerifyResult is the output of ledger verify.
type VerifyResult struct {
	OK       bool     `json:"ok"`
	Records  int64    `json:"records"`
	Head     string   `json:"head"`
	KeyIDs   []string `json:"key_ids"`
	Duration string   `json:"duration"`
	Index    *int64   `json:"index,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func runLedgerVerify(cmd *cobra.Command, args []string) error {
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger, keys *ledger.KeyRing) error {
		if len(keys.KeyIDs()) == 0 {
			return cli.NewConfigError("ledger.public_keys", "no verification keys configured")
		}

		start := time.Now()
		verr := l.VerifyChain(ctx, keys)
		res := VerifyResult{
			OK:       verr == nil,
			Records:  l.Len(),
			Head:     l.Head(),
			KeyIDs:   keys.KeyIDs(),
			Duration: time.Since(start).Round(time.Millisecond).String(),
		}
		var chainErr *ledger.ChainIntegrityError
		if errors.As(verr, &chainErr) {
			res.Index = &chainErr.Index
			res.Reason = chainErr.Reason
		}
		if verr != nil {
			res.Error = verr.Error()
		}

		if outputFormat == "" || outputFormat == string(cli.FormatText) {
			out := cmd.OutOrStdout()
			if res.OK {
				cli.Success(out, "Chain verified: %d records, head %s (%s)", res.Records, res.Head, res.Duration)
			} else {
				cli.Failure(out, "Chain broken: %v", verr)
			}
		} else if err := printResult(cmd, res); err != nil {
			return err
		}
		return verr
	})
}

func runLedgerList(cmd *cobra.Command, args []string) error {
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger, _ *ledger.KeyRing) error {
		records, err := l.Records(ctx, ledgerFlags.offset, ledgerFlags.limit)
		if err != nil {
			return err
		}
		if records == nil {
			records = []*ledger.Record{}
		}
		if outputFormat == "" || outputFormat == string(cli.FormatText) {
			return printResult(cmd, cli.RecordList(records))
		}
		return printResult(cmd, records)
	})
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	seq, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || seq < 0 {
		return fmt.Errorf("invalid record sequence %q", args[0])
	}
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger, _ *ledger.KeyRing) error {
		records, err := l.Records(ctx, seq, 1)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("record %d not found (ledger has %d records)", seq, l.Len())
		}
		if outputFormat == "" || outputFormat == string(cli.FormatText) {
			return printResult(cmd, cli.RecordText{Record: records[0]})
		}
		return printResult(cmd, records[0])
	})
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	exporter, err := export.ForFormat(ledgerFlags.format, ledgerFlags.pretty)
	if err != nil {
		return err
	}
	return withLedger(cmd, func(ctx context.Context, l *ledger.Ledger, _ *ledger.KeyRing) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		records, errCh := export.Stream(ctx, l, ledgerFlags.offset, 0)
		if ledgerFlags.progress {
			total := l.Len() - ledgerFlags.offset
			if total < 0 {
				total = 0
			}
			records = withProgress(ctx, records, cli.NewProgressReporter(cmd.ErrOrStderr(), "Exporting"), total)
		}

		if err := exporter.ExportStream(ctx, records, cmd.OutOrStdout()); err != nil {
			return err
		}
		if err, ok := <-errCh; ok && err != nil {
			return err
		}
		return nil
	})
}

// withProgress relays records while reporting how many have passed.
func withProgress(ctx context.Context, in <-chan *ledger.Record, p cli.ProgressReporter, total int64) <-chan *ledger.Record {
	out := make(chan *ledger.Record)
	go func() {
		defer close(out)
		p.Start(total)
		var n int64
		for r := range in {
			select {
			case out <- r:
			case <-ctx.Done():
				p.Error(ctx.Err())
				return
			}
			n++
			p.Update(n)
		}
		p.Finish()
	}()
	return out
}
