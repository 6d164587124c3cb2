// Package telemetry groups the observability packages of the warden server.
//
// # Components
//
//   - logging: slog handlers with subject pseudonymization and secret redaction
//   - metrics: Prometheus collectors for decisions, guard verdicts, the ledger and profiles
//   - tracing: OpenTelemetry spans around evaluation, ledger appends and HTTP requests
//   - health: liveness and readiness checks over the ledger, the catalog and chain verification
//
// # Usage
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//		return err
//	}
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	collector.RecordDecision("allowed", false, elapsed)
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(ctx)
//
// Subject references never reach a log line in clear text. Attributes named
// subject or subject_ref are replaced by a stable pseudonym, so lines about one
// subject still correlate.
package telemetry
