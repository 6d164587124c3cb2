package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/engine"
	"mercator-hq/warden/pkg/guard"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/ledger/storage"
	"mercator-hq/warden/pkg/profile"
	"mercator-hq/warden/pkg/profile/source"
	"mercator-hq/warden/pkg/profile/store"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// loadConfig loads the file named by --config, or the defaults when none is
// given, with WARDEN_* environment overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// setupLogging installs the configured logger. One-shot commands log at warn
// level unless --verbose is set so that their output stays readable.
func setupLogging(cfg *config.Config, oneShot bool) (*slog.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	switch {
	case verbose:
		lc.Level = "debug"
	case oneShot:
		lc.Level = "warn"
	}
	logger, err := logging.Setup(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

func profileOptions(cfg *config.Config) profile.Options {
	return profile.Options{WarnBandRatio: cfg.Guards.WarnBandRatio}
}

// loadProfiles reads every configured profile source. Any failing document
// fails the whole load so that a partial catalog never replaces a complete one.
func loadProfiles(cfg *config.Config, git *source.GitSource) ([]*profile.Profile, error) {
	opts := profileOptions(cfg)

	var profiles []*profile.Profile
	for _, name := range cfg.Profiles.Builtin {
		p, err := profile.Builtin(name, opts)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if cfg.Profiles.Directory != "" {
		loaded, err := source.LoadDirectory(cfg.Profiles.Directory, opts)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, loaded...)
	}

	if git != nil {
		loaded, err := git.Load(opts)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, loaded...)
	}

	return profiles, nil
}

// openSigner loads the ledger signing key. An in-memory ledger may run with an
// ephemeral key; a persistent one may not.
func openSigner(cfg *config.Config, logger *slog.Logger) (*ledger.Ed25519Signer, error) {
	if cfg.Ledger.SigningKeyPath != "" {
		signer, err := ledger.LoadSigner(cfg.Ledger.KeyID, cfg.Ledger.SigningKeyPath)
		if err != nil {
			return nil, cli.NewConfigError("ledger.signing_key_path", err.Error())
		}
		return signer, nil
	}
	if cfg.Ledger.Backend != "memory" {
		return nil, cli.NewConfigError("ledger.signing_key_path", "is required for a persistent ledger")
	}
	logger.Warn("No signing key configured, using an ephemeral key for the in-memory ledger")
	return ledger.GenerateSigner(cfg.Ledger.KeyID)
}

// keyRing builds the verification key ring: every configured public key plus
// the signing key when one is available.
func keyRing(cfg *config.Config, signer *ledger.Ed25519Signer) (*ledger.KeyRing, error) {
	ring, err := ledger.LoadKeyRing(cfg.Ledger.PublicKeys)
	if err != nil {
		return nil, cli.NewConfigError("ledger.public_keys", err.Error())
	}
	if signer != nil {
		if err := ring.Add(signer.KeyID(), signer.PublicKey()); err != nil {
			return nil, err
		}
	}
	return ring, nil
}

// readOnlySigner lets inspection commands open a ledger without the private
// key. Appends through it fail.
type readOnlySigner struct {
	keyID string
}

func (s readOnlySigner) KeyID() string { return s.keyID }

func (s readOnlySigner) Sign([]byte) ([]byte, error) {
	return nil, errors.New("ledger opened read-only")
}

// openReadOnly opens the configured ledger for inspection and returns the key
// ring that verifies it.
func openReadOnly(ctx context.Context, cfg *config.Config) (*ledger.Ledger, *ledger.KeyRing, error) {
	var signer *ledger.Ed25519Signer
	if cfg.Ledger.SigningKeyPath != "" {
		s, err := ledger.LoadSigner(cfg.Ledger.KeyID, cfg.Ledger.SigningKeyPath)
		if err != nil {
			return nil, nil, cli.NewConfigError("ledger.signing_key_path", err.Error())
		}
		signer = s
	}
	ring, err := keyRing(cfg, signer)
	if err != nil {
		return nil, nil, err
	}

	backend, err := storage.New(ctx, cfg.Ledger)
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.Open(ctx, backend, readOnlySigner{keyID: cfg.Ledger.KeyID}, ledger.Options{Verifier: ring})
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return l, ring, nil
}

// app is the assembled decision engine with its ledger and telemetry.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend ledger.Backend
	ledger  *ledger.Ledger
	keys    *ledger.KeyRing
	engine  *engine.Engine
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	git     *source.GitSource
}

// newApp wires storage, signing, profile sources, guards and telemetry into
// an engine. The caller must Close the app.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	tracer, err := tracing.New(cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracer = tracer
	a.metrics = metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	if cfg.Profiles.Git.Enabled {
		git, err := source.NewGitSource(cfg.Profiles.Git)
		if err != nil {
			return nil, cli.NewConfigError("profiles.git", err.Error())
		}
		if err := git.Clone(ctx); err != nil {
			return nil, err
		}
		a.git = git
	}
	profiles, err := loadProfiles(cfg, a.git)
	if err != nil {
		return nil, err
	}
	catalog := store.NewCatalog(profiles...)
	a.metrics.RecordReload(nil, catalog.Count())

	signer, err := openSigner(cfg, logger)
	if err != nil {
		return nil, err
	}
	if a.keys, err = keyRing(cfg, signer); err != nil {
		return nil, err
	}

	if a.backend, err = storage.New(ctx, cfg.Ledger); err != nil {
		return nil, err
	}
	a.ledger, err = ledger.Open(ctx, a.backend, signer, ledger.Options{
		Verifier:     a.keys,
		VerifyOnOpen: cfg.Ledger.VerifyOnOpen,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	a.engine, err = engine.New(ctx, engine.Options{
		Store:    store.New(catalog, store.Config{DefaultProfile: cfg.Profiles.DefaultProfile}),
		Ledger:   a.ledger,
		Pipeline: guard.NewPipeline(guard.Config{Timeout: cfg.Guards.Timeout, Logger: logger}),
		Metrics:  a.metrics,
		Tracer:   a.tracer,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// reload re-reads every profile source and supersedes corridors whose profile
// has a stricter successor. A failed load keeps the current catalog.
func (a *app) reload(ctx context.Context) error {
	profiles, err := loadProfiles(a.cfg, a.git)
	if err != nil {
		a.metrics.RecordReload(err, a.engine.Store().Catalog().Count())
		return fmt.Errorf("profile reload: %w", err)
	}

	for _, s := range a.engine.Reconcile(ctx, profiles) {
		if s.Err != nil {
			a.logger.Warn("Corridor kept its profile",
				"corridor", s.CorridorID,
				"active", s.From,
				"candidate", s.To,
				"error", s.Err)
			continue
		}
		a.logger.Info("Corridor profile superseded",
			"corridor", s.CorridorID,
			"from", s.From,
			"to", s.To)
	}
	return nil
}

// Close flushes traces and closes the ledger.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	switch {
	case a.ledger != nil:
		errs = append(errs, a.ledger.Close())
	case a.backend != nil:
		errs = append(errs, a.backend.Close())
	}
	return errors.Join(errs...)
}
