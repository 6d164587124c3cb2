package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - policy-gated decision engine with a signed audit ledger",
	Long: `Warden decides whether a proposed change to a subject's operating envelopes
may proceed, may proceed at reduced precision, must wait, or is forbidden.

Each decision is made against the jurisdiction profile bound to the corridor,
enforces monotone tightening of tracked envelopes and absolute ceilings, and is
recorded as a signed, hash-chained audit record.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus WARDEN_* environment when empty)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// printResult writes data to the command's stdout in the selected format.
func printResult(cmd *cobra.Command, data interface{}) error {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}
