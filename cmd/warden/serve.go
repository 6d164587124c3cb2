package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/api"
	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/ledger/monitor"
	"mercator-hq/warden/pkg/profile/source"
	"mercator-hq/warden/pkg/security/auth"
	"mercator-hq/warden/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the decision API server",
	Long: `Start the decision API with the specified configuration.

The server evaluates proposals on POST /v1/evaluate, serves the audit ledger
under /v1/ledger and corridor bindings under /v1/profiles, and exposes health,
version and Prometheus metrics endpoints.

Profile sources are reloaded when the profile directory changes (with
profiles.watch) or the git repository moves (with profiles.git.enabled).
Corridors move to a new profile version only when it is at least as strict.

Examples:
  # Start with defaults (built-in profiles, sqlite ledger)
  warden serve --config warden.yaml

  # Override listen address
  warden serve --listen 0.0.0.0:8470

  # Validate config and profiles without starting the server
  warden serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and profiles without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	logger, err := setupLogging(cfg, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if serveFlags.dryRun {
		profiles, err := loadProfiles(cfg, nil)
		if err != nil {
			return err
		}
		cli.Success(out, "Configuration valid (%d profiles, %s ledger)", len(profiles), cfg.Ledger.Backend)
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("Shutdown incomplete", "error", err)
		}
	}()

	mon := monitor.New(a.ledger, monitor.Config{
		Schedule: cfg.Ledger.VerifySchedule,
		Verifier: a.keys,
		OnResult: func(s monitor.Status) {
			a.metrics.RecordVerification(s.Err, s.Duration)
		},
	})
	if err := mon.Start(ctx); err != nil {
		return cli.NewConfigError("ledger.verify_schedule", err.Error())
	}
	defer mon.Stop()

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.Register("ledger", health.LedgerCheck(a.backend))
	checker.Register("profiles", health.CatalogCheck(a.engine.Store().Catalog().Count))
	checker.Register("chain", health.VerificationCheck(func() error {
		if s := mon.Last(); s != nil {
			return s.Err
		}
		return nil
	}))

	reload := func() error { return a.reload(ctx) }
	if cfg.Profiles.Watch {
		watcher, err := source.NewDirWatcher(cfg.Profiles.Directory, cfg.Profiles.DebounceInterval)
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Watch(ctx, reload); err != nil {
				logger.Error("Profile watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}
	if a.git != nil {
		go a.git.Poll(ctx, cfg.Profiles.Git.PollInterval, reload)
	}

	var apiKeys *auth.APIKeyValidator
	if cfg.Server.Auth.Enabled {
		if apiKeys, err = auth.FromConfig(cfg.Server.Auth); err != nil {
			return cli.NewConfigError("server.auth", err.Error())
		}
	}

	router := api.NewRouter(api.Options{
		Engine:         a.engine,
		Verifier:       a.keys,
		ProfileOptions: profileOptions(cfg),
		Auth:           apiKeys,
		Health:         checker,
		Metrics:        a.metrics,
		Tracer:         a.tracer,
		Logger:         logger,
		Server:         cfg.Server,
		Build:          api.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
	})
	srv := api.NewServer(cfg.Server, router, logger)

	cli.Success(out, "Ledger open (%d records, head %s)", a.ledger.Len(), a.ledger.Head())
	cli.Success(out, "Profiles loaded (%d)", a.engine.Store().Catalog().Count())
	if next := mon.NextRun(); next != nil {
		cli.Success(out, "Chain verification scheduled (next %s)", next.Format(time.RFC3339))
	}
	if apiKeys != nil {
		cli.Success(out, "API key authentication enabled (%d keys)", len(apiKeys.List()))
	}
	scheme := "http"
	if cfg.Server.TLS.Enabled {
		scheme = "https"
	}
	fmt.Fprintf(out, "Listening on %s://%s, press Ctrl+C to stop\n", scheme, cfg.Server.ListenAddress)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	cli.Success(out, "Server stopped")
	return nil
}
