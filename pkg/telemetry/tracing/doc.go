// Package tracing wires OpenTelemetry tracing for warden.
//
// When tracing is disabled New returns a tracer backed by the noop provider,
// so callers can create spans unconditionally. When enabled, spans are
// batched to an OTLP gRPC collector and W3C trace context is propagated on
// incoming HTTP requests by Middleware.
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "engine.evaluate")
//	defer span.End()
package tracing
