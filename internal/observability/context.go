package observability

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Context keys for observability data.
type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if v := ctx.Value(correlationIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// TraceSpanFromContext returns the hex trace and span IDs of the span active
// in ctx. Returns empty strings if ctx carries no valid span.
func TraceSpanFromContext(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}

// LoggerFromContext returns the request-scoped logger stored in ctx, falling
// back to fallback when none is attached. Trace fields of the active span are
// added so entries can be joined with the exported trace.
func LoggerFromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	logger := fallback
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	if traceID, spanID := TraceSpanFromContext(ctx); traceID != "" {
		logger = WithTraceContext(logger, traceID, spanID)
	}
	return logger
}
