// Package main provides the entry point for the observable API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/helixir/observable-api/internal/config"
	"github.com/helixir/observable-api/internal/observability"
	"github.com/helixir/observable-api/internal/observable"
	"github.com/helixir/observable-api/internal/outbound"
	httpserver "github.com/helixir/observable-api/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	baseLogger, logCloser, err := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
		Buffered:   cfg.Logging.Buffered,
		BufferSize: cfg.Logging.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "server").Logger()
	logger.Info().Msg("observable-api server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracer and meter providers. Telemetry owns the log closer from here on.
	tel, err := observability.NewTelemetry(ctx, observability.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		SampleRate:     cfg.Telemetry.SampleRate,
		MetricInterval: cfg.Telemetry.MetricInterval,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
	}, baseLogger, observability.WithLogCloser(logCloser))
	if err != nil {
		_ = logCloser.Close()
		return fmt.Errorf("create telemetry: %w", err)
	}
	otel.SetErrorHandler(tel.ErrorHandler())
	logger.Info().
		Bool("export_enabled", cfg.Telemetry.Enabled).
		Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
		Msg("telemetry initialized")

	instruments, err := observability.NewInstruments(tel.TracerProvider(), tel.MeterProvider())
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return fmt.Errorf("create instruments: %w", err)
	}

	// Prometheus registry for the /metrics endpoint.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(cfg.Metrics.Namespace, registry)

	client := outbound.NewClient(outbound.Config{
		Timeout:   cfg.Outbound.Timeout,
		RateLimit: cfg.Outbound.RateLimit,
		BurstSize: cfg.Outbound.BurstSize,
		UserAgent: cfg.Outbound.UserAgent,
	},
		outbound.WithTracerProvider(tel.TracerProvider()),
		outbound.WithMeterProvider(tel.MeterProvider()),
		outbound.WithPropagators(tel.Propagator()),
		outbound.WithMetrics(metrics),
	)

	service := observable.NewService(observable.Config{
		DatabaseDelay:      cfg.Simulation.DatabaseDelay,
		BusinessLogicDelay: cfg.Simulation.BusinessLogicDelay,
		PostsURL:           cfg.Simulation.PostsURL,
		ExampleURL:         cfg.Simulation.ExampleURL,
	}, instruments, client, baseLogger)

	httpCfg := httpserver.Config{
		Address:      cfg.Server.HTTPAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, service, baseLogger,
		httpserver.WithMetrics(metrics),
		httpserver.WithTracerProvider(tel.TracerProvider()),
		httpserver.WithMeterProvider(tel.MeterProvider()),
		httpserver.WithPropagators(tel.Propagator()),
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("observable-api is ready")

	// Wait for shutdown signal or server error.
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("server error")
	}

	// Graceful shutdown: stop accepting requests, then flush telemetry.
	logger.Info().Msg("shutting down observable-api")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("observable-api shutdown complete")

	// Spans, then metrics, then the log output. Nothing may log after this.
	if err := tel.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
	}

	return serveErr
}
