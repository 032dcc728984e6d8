// Package observability provides logging, metrics, and tracing support for
// the observable API service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for inbound requests and outbound calls
//   - OpenTelemetry tracer and meter providers with OTLP export
//   - The shared application instruments (counters and span sources)
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	logger, closer, err := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info().Str("request_id", reqID).Msg("login received")
//
// The closer is handed to Telemetry so that logs are closed after traces and
// metrics have been flushed.
//
// # Telemetry
//
//	tel, err := observability.NewTelemetry(ctx, cfg, logger, observability.WithLogCloser(closer))
//	inst, err := observability.NewInstruments(tel.TracerProvider(), tel.MeterProvider())
//	defer tel.Shutdown(shutdownCtx)
//
// Shutdown flushes spans, then metrics, then closes the log output, once.
//
// # Spans
//
// Spans follow stack discipline; end them with defer in the scope that
// started them:
//
//	ctx, span := inst.DatabaseTracer.Start(ctx, "DatabaseOperation")
//	defer span.End()
//
// # Standard Fields
//
//   - request_id: chi request identifier
//   - correlation_id: X-Correlation-ID header value
//   - trace_id, span_id: active OpenTelemetry span
//   - component: emitting component
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
