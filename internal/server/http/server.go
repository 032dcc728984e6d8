// Package httpserver provides the HTTP API server for the observable API.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/observable-api/internal/domain"
	"github.com/helixir/observable-api/internal/observability"
)

// Service defines the operations exposed under /observable.
type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (string, error)
	ProcessMultiActivity(ctx context.Context) (string, error)
	ProcessSingleActivity(ctx context.Context) (string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records Prometheus request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracerProvider sets the provider for server spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.otelOpts = append(s.otelOpts, otelhttp.WithTracerProvider(tp)) }
}

// WithMeterProvider sets the provider for the HTTP server metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) { s.otelOpts = append(s.otelOpts, otelhttp.WithMeterProvider(mp)) }
}

// WithPropagators sets the propagator that extracts incoming trace context.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(s *Server) { s.otelOpts = append(s.otelOpts, otelhttp.WithPropagators(p)) }
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	service    Service
	metrics    *observability.Metrics
	logger     zerolog.Logger
	otelOpts   []otelhttp.Option
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, service Service, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		service: service,
		logger:  logger.With().Str("component", "http-server").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Recoverer sits innermost so logging and metrics see the 500 it writes.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otelhttp.NewMiddleware("observable-api",
		append([]otelhttp.Option{otelhttp.WithSpanNameFormatter(spanName)}, s.otelOpts...)...))
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggerMiddleware(s.logger))
	if s.metrics != nil {
		r.Use(metricsMiddleware(s.metrics))
	}
	r.Use(middleware.Recoverer)

	r.Get("/", s.healthHandler)
	r.Get("/healthz", s.healthHandler)

	r.Route("/observable", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Get("/process-multi-activity", s.processMultiActivity)
		r.Get("/process-single-activity", s.processSingleActivity)
	})

	return r
}

// Handler returns the root handler, including all middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func spanName(_ string, r *http.Request) string {
	return r.Method + " " + r.URL.Path
}
