package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation scope names and the application counters.
const (
	InstrumentationVersion = "1.0.0"

	// MeterName is the meter that owns the interaction counters.
	MeterName = "ObservableApi.Interaction"
	// DatabaseSourceName is the tracer for simulated database work.
	DatabaseSourceName = "ObservableApi.Database"
	// ExternalAPISourceName is the tracer for outbound calls and their callers.
	ExternalAPISourceName = "ObservableApi.ExternalApi"

	LoginCounterName          = "user.logins.count"
	TaskCompletionCounterName = "tasks.completed.count"
)

// Instruments is the immutable set of telemetry handles shared by all
// requests. All fields are safe for concurrent use.
type Instruments struct {
	// LoginCounter counts user logins.
	LoginCounter metric.Int64Counter
	// TaskCompletionCounter counts fully processed multi-activity tasks.
	TaskCompletionCounter metric.Int64Counter

	// DatabaseTracer opens spans for database work.
	DatabaseTracer trace.Tracer
	// ExternalAPITracer opens spans for outbound calls.
	ExternalAPITracer trace.Tracer
}

// NewInstruments creates the counters and span sources from the given providers.
func NewInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(MeterName, metric.WithInstrumentationVersion(InstrumentationVersion))

	logins, err := meter.Int64Counter(LoginCounterName,
		metric.WithDescription("user logins"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s counter: %w", LoginCounterName, err)
	}

	tasks, err := meter.Int64Counter(TaskCompletionCounterName,
		metric.WithDescription("completed processing tasks"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s counter: %w", TaskCompletionCounterName, err)
	}

	return &Instruments{
		LoginCounter:          logins,
		TaskCompletionCounter: tasks,
		DatabaseTracer:        tp.Tracer(DatabaseSourceName, trace.WithInstrumentationVersion(InstrumentationVersion)),
		ExternalAPITracer:     tp.Tracer(ExternalAPISourceName, trace.WithInstrumentationVersion(InstrumentationVersion)),
	}, nil
}

// RecordSpanError marks span as failed with err. A nil err is ignored.
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
