package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/engine"
	"mercator-hq/warden/pkg/ledger"
	"mercator-hq/warden/pkg/profile"
	"mercator-hq/warden/pkg/security/auth"
	"mercator-hq/warden/pkg/telemetry/health"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options holds the router's dependencies. Engine is required.
type Options struct {
	Engine *engine.Engine

	// Verifier checks signatures on /v1/ledger/verify. Nil uses the
	// ledger's own verifier.
	Verifier ledger.Verifier

	// ProfileOptions are applied to documents posted for supersession.
	ProfileOptions profile.Options

	// Auth authenticates /v1 routes by API key. Nil leaves them open.
	Auth *auth.APIKeyValidator

	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Logger  *slog.Logger
	Server  config.ServerConfig
	Build   BuildInfo
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	if opts.Server.MaxBodyBytes <= 0 {
		opts.Server.MaxBodyBytes = config.DefaultMaxBodyBytes
	}

	h := &handler{
		engine:   opts.Engine,
		verifier: opts.Verifier,
		profiles: opts.ProfileOptions,
		maxBody:  opts.Server.MaxBodyBytes,
		logger:   opts.Logger.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(tracing.Middleware(opts.Tracer))
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	require := func(auth.Role) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.Auth != nil {
		require = auth.NewAPIKeyMiddleware(opts.Auth, opts.Server.Auth.Header, opts.Logger).Require
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(require(auth.RoleEvaluate)).Post("/evaluate", h.evaluate)

		r.Group(func(r chi.Router) {
			r.Use(require(auth.RoleRead))
			r.Get("/ledger/records", h.listRecords)
			r.Get("/ledger/records/{seq}", h.getRecord)
			r.Get("/ledger/verify", h.verify)
			r.Get("/profiles", h.listBindings)
			r.Get("/profiles/{corridor}", h.getBinding)
		})

		r.With(require(auth.RoleAdmin)).Post("/profiles/{corridor}/supersede", h.supersede)
	})

	r.Get("/health/live", opts.Health.LivenessHandler())
	r.Get("/health/ready", opts.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(opts.Build.Version, opts.Build.Commit, opts.Build.BuildTime))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, metricsPath(opts.Metrics), opts.Metrics.Handler())
	}

	return r
}

func metricsPath(c *metrics.Collector) string {
	if p := c.Path(); p != "" {
		return p
	}
	return config.DefaultMetricsPath
}

// requestContext copies chi's request id into the logging context.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
