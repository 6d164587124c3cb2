/*
Package cli provides command-line helpers for the warden command.

Output Formatting:

Commands print results as text, JSON or YAML, chosen with --output:

	format, err := cli.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, cli.RecordText{Record: rec})

Values implementing TextWriter render their own text form. Decision outcomes
are coloured on terminals (allowed green, deferred yellow, rejected magenta,
forbidden red).

Exit Codes:

ExitCode maps command errors to stable process exit codes so that scripts can
tell a policy downgrade (4) from a ledger write failure (5) or a broken chain
(6). evaluate returns an *OutcomeError, exit code 10, when the decision is not
allowed.

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "Exporting")
	progress.Start(total)
	progress.Update(n)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
