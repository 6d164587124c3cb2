package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/profile"
	"mercator-hq/warden/pkg/profile/store"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Validate and inspect policy profiles",
	Long: `Validate profile documents, list the configured catalog and preview
supersessions.

Subcommands:
  validate - Validate profile documents
  list     - List the configured catalog
  show     - Show one catalog profile
  diff     - Check whether a document may supersede a catalog profile`,
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate profile documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProfileValidate,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured catalog",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one catalog profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileDiffCmd = &cobra.Command{
	Use:   "diff <name> <file>",
	Short: "Check whether a document may supersede a catalog profile",
	Long: `Compare a candidate profile document with the catalog profile of the same
lineage. The command lists every relaxed constraint and exits 4 when the
candidate would be rejected as a policy downgrade.`,
	Args: cobra.ExactArgs(2),
	RunE: runProfileDiff,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileValidateCmd, profileListCmd, profileShowCmd, profileDiffCmd)
}

// ProfileSummary describes one catalog profile.
type ProfileSummary struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Authority     string   `json:"authority"`
	EffectiveDate string   `json:"effective_date"`
	Jurisdictions []string `json:"jurisdictions,omitempty"`
	Envelopes     []string `json:"envelopes,omitempty"`
	Ref           string   `json:"ref"`
	Source        string   `json:"source,omitempty"`
}

func summarize(p *profile.Profile) ProfileSummary {
	return ProfileSummary{
		Name:          p.Name,
		Version:       p.Version,
		Authority:     p.Authority,
		EffectiveDate: p.EffectiveDate.Format("2006-01-02"),
		Jurisdictions: p.Jurisdictions,
		Envelopes:     p.EnvelopeNames(),
		Ref:           p.Ref(),
		Source:        p.Source,
	}
}

// ProfileList renders catalog summaries one per line.
type ProfileList []ProfileSummary

// WriteText implements cli.TextWriter.
func (l ProfileList) WriteText(w io.Writer) error {
	for _, s := range l {
		_, err := fmt.Fprintf(w, "%-20s %-8s %-10s %-16s %s\n",
			s.Name, s.Version, s.EffectiveDate, strings.Join(s.Jurisdictions, ","), s.Ref)
		if err != nil {
			return err
		}
	}
	return nil
}

// catalogFromConfig loads the builtin and directory profile sources of the
// configuration. The git source is only read by serve.
func catalogFromConfig() (*config.Config, *store.Catalog, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if _, err := setupLogging(cfg, true); err != nil {
		return nil, nil, err
	}
	profiles, err := loadProfiles(cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store.NewCatalog(profiles...), nil
}

func runProfileValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		p, err := profile.ParseFile(path, profileOptions(cfg))
		if err != nil {
			failed++
			cli.Failure(out, "%s: %v", path, err)
			continue
		}
		cli.Success(out, "%s: %s", path, p.Ref())
	}
	if failed > 0 {
		return profile.NewProfileValidationError("", nil, fmt.Sprintf("%d of %d documents invalid", failed, len(args)))
	}
	return nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	_, catalog, err := catalogFromConfig()
	if err != nil {
		return err
	}
	all := catalog.All()
	list := make(ProfileList, len(all))
	for i, p := range all {
		list[i] = summarize(p)
	}
	return printResult(cmd, list)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	_, catalog, err := catalogFromConfig()
	if err != nil {
		return err
	}
	p, ok := catalog.Get(args[0])
	if !ok {
		return fmt.Errorf("profile %q not in catalog", args[0])
	}
	if outputFormat == "" || outputFormat == string(cli.FormatText) {
		// Profiles are documents; text output is their YAML form.
		return cli.NewFormatter(cli.FormatYAML).FormatTo(cmd.OutOrStdout(), p)
	}
	return printResult(cmd, p)
}

func runProfileDiff(cmd *cobra.Command, args []string) error {
	cfg, catalog, err := catalogFromConfig()
	if err != nil {
		return err
	}
	old, ok := catalog.Get(args[0])
	if !ok {
		return fmt.Errorf("profile %q not in catalog", args[0])
	}

	next, err := profile.ParseFile(args[1], profileOptions(cfg))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range profile.CompareStrictness(old, next) {
		fmt.Fprintf(out, "  relaxed %s\n", r)
	}
	if err := profile.CheckSupersede(old, next); err != nil {
		cli.Failure(out, "%s cannot supersede %s", next.Ref(), old.Ref())
		return err
	}
	cli.Success(out, "%s may supersede %s", next.Ref(), old.Ref())
	return nil
}
