package observability

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TelemetryConfig holds OpenTelemetry provider configuration.
type TelemetryConfig struct {
	// Enabled turns on OTLP export. When false, spans and metrics are still
	// recorded in-process but never leave it.
	Enabled bool

	// Endpoint is the OTLP/gRPC collector address (host:port).
	Endpoint string

	// Insecure disables TLS on the collector connection.
	Insecure bool

	ServiceName    string
	ServiceVersion string
	Environment    string

	// SampleRate is the ratio of root traces sampled (0.0 to 1.0).
	SampleRate float64

	// MetricInterval is the push interval of the periodic metric reader.
	MetricInterval time.Duration

	// ExportTimeout bounds a single export call.
	ExportTimeout time.Duration
}

// TelemetryOption customizes NewTelemetry.
type TelemetryOption func(*telemetryOptions)

type telemetryOptions struct {
	spanExporter sdktrace.SpanExporter
	metricReader sdkmetric.Reader
	logCloser    io.Closer
	errOutput    io.Writer
	resource     *resource.Resource
}

// WithSpanExporter exports spans to exp instead of the OTLP collector.
func WithSpanExporter(exp sdktrace.SpanExporter) TelemetryOption {
	return func(o *telemetryOptions) { o.spanExporter = exp }
}

// WithMetricReader collects metrics with r instead of the OTLP periodic reader.
func WithMetricReader(r sdkmetric.Reader) TelemetryOption {
	return func(o *telemetryOptions) { o.metricReader = r }
}

// WithLogCloser registers the log output closer; it is closed as the final
// step of Shutdown.
func WithLogCloser(c io.Closer) TelemetryOption {
	return func(o *telemetryOptions) { o.logCloser = c }
}

// WithErrorOutput sets where ErrorHandler writes once the log output has been
// closed. Defaults to os.Stderr.
func WithErrorOutput(w io.Writer) TelemetryOption {
	return func(o *telemetryOptions) { o.errOutput = w }
}

// WithResource overrides the detected resource.
func WithResource(res *resource.Resource) TelemetryOption {
	return func(o *telemetryOptions) { o.resource = res }
}

// Telemetry owns the process-wide tracer and meter providers and the log
// output, and flushes them in order on shutdown.
type Telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	propagator     propagation.TextMapPropagator
	logCloser      io.Closer
	logger         zerolog.Logger
	errOutput      io.Writer
	logsClosed     atomic.Bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewTelemetry builds the tracer and meter providers.
func NewTelemetry(ctx context.Context, cfg TelemetryConfig, logger zerolog.Logger, opts ...TelemetryOption) (*Telemetry, error) {
	var o telemetryOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := o.resource
	if res == nil {
		var err error
		res, err = newResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create resource: %w", err)
		}
	}

	spanExporter := o.spanExporter
	metricReader := o.metricReader
	if cfg.Enabled && spanExporter == nil {
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithTLSCredentials(transportCredentials(cfg.Insecure)),
			otlptracegrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName)),
			otlptracegrpc.WithTimeout(cfg.ExportTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", err)
		}
		spanExporter = exp
	}
	if cfg.Enabled && metricReader == nil {
		exp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithTLSCredentials(transportCredentials(cfg.Insecure)),
			otlpmetricgrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName)),
			otlpmetricgrpc.WithTimeout(cfg.ExportTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		metricReader = sdkmetric.NewPeriodicReader(exp,
			sdkmetric.WithInterval(cfg.MetricInterval),
			sdkmetric.WithTimeout(cfg.ExportTimeout),
		)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	}
	if spanExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(spanExporter))
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if metricReader != nil {
		mpOpts = append(mpOpts, sdkmetric.WithReader(metricReader))
	}

	logCloser := o.logCloser
	if logCloser == nil {
		logCloser = nopCloser{}
	}
	errOutput := o.errOutput
	if errOutput == nil {
		errOutput = os.Stderr
	}

	return &Telemetry{
		tracerProvider: sdktrace.NewTracerProvider(tpOpts...),
		meterProvider:  sdkmetric.NewMeterProvider(mpOpts...),
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		logCloser: logCloser,
		logger:    logger.With().Str("component", "telemetry").Logger(),
		errOutput: errOutput,
	}, nil
}

// TracerProvider returns the process tracer provider.
func (t *Telemetry) TracerProvider() *sdktrace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the process meter provider.
func (t *Telemetry) MeterProvider() *sdkmetric.MeterProvider {
	return t.meterProvider
}

// Propagator returns the W3C trace-context and baggage propagator.
func (t *Telemetry) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// ErrorHandler reports SDK errors through the telemetry logger. After Shutdown
// has closed the log output, errors go to the error output instead.
func (t *Telemetry) ErrorHandler() otel.ErrorHandler {
	return otel.ErrorHandlerFunc(func(err error) {
		if t.logsClosed.Load() {
			fmt.Fprintf(t.errOutput, "opentelemetry error: %v\n", err)
			return
		}
		t.logger.Warn().Err(err).Msg("opentelemetry error")
	})
}

// Shutdown flushes pending spans, then pending metrics, then closes the log
// output. It runs once; later calls return the first result. Every step runs
// even if an earlier one fails.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		var errs []error

		if err := t.tracerProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush traces: %w", err))
		}
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}

		if err := t.meterProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush metrics: %w", err))
		}
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}

		t.shutdownErr = errors.Join(errs...)
		if t.shutdownErr != nil {
			t.logger.Error().Err(t.shutdownErr).Msg("telemetry flush incomplete")
		} else {
			t.logger.Info().Msg("telemetry flushed")
		}

		t.logsClosed.Store(true)
		if err := t.logCloser.Close(); err != nil {
			t.shutdownErr = errors.Join(t.shutdownErr, fmt.Errorf("close log output: %w", err))
		}
	})
	return t.shutdownErr
}

func newResource(ctx context.Context, cfg TelemetryConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(attrs...),
	)
	if errors.Is(err, resource.ErrPartialResource) {
		// A failed detector still leaves the configured attributes in place.
		return res, nil
	}
	return res, err
}

func transportCredentials(insecureConn bool) credentials.TransportCredentials {
	if insecureConn {
		return insecure.NewCredentials()
	}
	return credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
}
