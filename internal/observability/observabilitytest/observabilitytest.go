// Package observabilitytest provides in-memory telemetry for tests: a span
// recorder and a manual metric reader wired to real SDK providers.
package observabilitytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/helixir/observable-api/internal/observability"
)

// Harness bundles providers whose output can be inspected synchronously.
type Harness struct {
	Spans          *tracetest.SpanRecorder
	Reader         *sdkmetric.ManualReader
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Instruments    *observability.Instruments
}

// New returns a Harness whose providers are shut down when the test ends.
func New(t testing.TB) *Harness {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	inst, err := observability.NewInstruments(tp, mp)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	return &Harness{
		Spans:          spans,
		Reader:         reader,
		TracerProvider: tp,
		MeterProvider:  mp,
		Instruments:    inst,
	}
}

// CounterValue returns the cumulative value of the int64 counter name,
// summed across all attribute sets. A counter never incremented reads 0.
func (h *Harness) CounterValue(t testing.TB, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, h.Reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.Truef(t, ok, "metric %s is %T, not an int64 sum", name, m.Data)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

// EndedSpan returns the single ended span called name. It fails the test if
// there is not exactly one.
func (h *Harness) EndedSpan(t testing.TB, name string) sdktrace.ReadOnlySpan {
	t.Helper()

	var found []sdktrace.ReadOnlySpan
	for _, s := range h.Spans.Ended() {
		if s.Name() == name {
			found = append(found, s)
		}
	}
	require.Lenf(t, found, 1, "expected one ended span %q", name)
	return found[0]
}

// SpanAttributes flattens the span's attributes into a map keyed by name.
func SpanAttributes(s sdktrace.ReadOnlySpan) map[string]interface{} {
	attrs := make(map[string]interface{}, len(s.Attributes()))
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	return attrs
}
