package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestCorrelationID(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "corr-1")
		assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
	})

	t.Run("missing", func(t *testing.T) {
		assert.Empty(t, CorrelationIDFromContext(context.Background()))
	})
}

func TestTraceSpanFromContext(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		traceID, spanID := TraceSpanFromContext(context.Background())
		assert.Empty(t, traceID)
		assert.Empty(t, spanID)
	})

	t.Run("active span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		traceID, spanID := TraceSpanFromContext(ctx)
		assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
		assert.Equal(t, span.SpanContext().SpanID().String(), spanID)
	})
}

func TestLoggerFromContext(t *testing.T) {
	t.Run("falls back when no logger attached", func(t *testing.T) {
		var buf bytes.Buffer
		fallback := zerolog.New(&buf).With().Str("origin", "fallback").Logger()

		logger := LoggerFromContext(context.Background(), fallback)
		logger.Info().Msg("hello")

		assert.Contains(t, buf.String(), `"origin":"fallback"`)
		assert.NotContains(t, buf.String(), "trace_id")
	})

	t.Run("uses attached logger and adds trace fields", func(t *testing.T) {
		var fallbackBuf, ctxBuf bytes.Buffer
		fallback := zerolog.New(&fallbackBuf)
		attached := zerolog.New(&ctxBuf).With().Str("origin", "request").Logger()

		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx := attached.WithContext(context.Background())
		ctx, span := tp.Tracer("test").Start(ctx, "op")
		defer span.End()

		logger := LoggerFromContext(ctx, fallback)
		logger.Info().Msg("hello")

		assert.Empty(t, fallbackBuf.String())

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(ctxBuf.Bytes(), &entry))
		assert.Equal(t, "request", entry["origin"])
		assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
	})
}
