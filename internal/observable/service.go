// Package observable implements the instrumented operations behind the
// observable API endpoints.
package observable

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/observable-api/internal/domain"
	"github.com/helixir/observable-api/internal/observability"
)

// Confirmation messages returned by the operations.
const (
	LoginMessage        = "User logged in successfully"
	MultiTaskMessage    = "Multi task processed successfully"
	SingleTaskMessage   = "Single task processed successfully"
	BusinessLogicResult = "BusinessResult"
)

// Span names.
const (
	SpanDatabaseOperation = "DatabaseOperation"
	SpanAPICall           = "ApiCall"
	SpanAPICallV2         = "ApiCallV2"
	SpanBusinessLogic     = "BusinessLogic"
	SpanExternalHTTPCall  = "ExternalHttpCall"
)

// Getter performs an outbound GET bound to ctx.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Config holds the simulated latencies and the outbound targets.
type Config struct {
	DatabaseDelay      time.Duration
	BusinessLogicDelay time.Duration
	PostsURL           string
	ExampleURL         string
}

// DefaultConfig returns the stock delays and targets.
func DefaultConfig() Config {
	return Config{
		DatabaseDelay:      time.Second,
		BusinessLogicDelay: 100 * time.Millisecond,
		PostsURL:           "https://jsonplaceholder.typicode.com/posts/1",
		ExampleURL:         "https://example.com",
	}
}

// Service runs the instrumented operations. It holds only process-scoped
// handles and is safe for concurrent use.
type Service struct {
	instruments *observability.Instruments
	client      Getter
	config      Config
	logger      zerolog.Logger
}

// NewService creates a Service.
func NewService(cfg Config, instruments *observability.Instruments, client Getter, logger zerolog.Logger) *Service {
	return &Service{
		instruments: instruments,
		client:      client,
		config:      cfg,
		logger:      logger.With().Str("component", "observable").Logger(),
	}
}

// Login logs the payload and counts the login. It never fails.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	logger := observability.LoggerFromContext(ctx, s.logger)
	logger.Info().
		Object("request", req).
		Msg("Hit the login")

	s.instruments.LoginCounter.Add(ctx, 1)
	return LoginMessage, nil
}

// ProcessMultiActivity runs a simulated database operation and an outbound
// call in two sibling spans, then counts the completed task. The counter is
// untouched when either step fails.
func (s *Service) ProcessMultiActivity(ctx context.Context) (string, error) {
	if err := s.databaseOperation(ctx); err != nil {
		return "", err
	}
	if err := s.apiCall(ctx); err != nil {
		return "", err
	}

	s.instruments.TaskCompletionCounter.Add(ctx, 1)
	return MultiTaskMessage, nil
}

func (s *Service) databaseOperation(ctx context.Context) error {
	ctx, span := s.instruments.DatabaseTracer.Start(ctx, SpanDatabaseOperation,
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if err := sleep(ctx, s.config.DatabaseDelay); err != nil {
		observability.RecordSpanError(span, err)
		return fmt.Errorf("database operation: %w", err)
	}

	span.SetAttributes(
		attribute.String("db.system", "SQL"),
		attribute.String("db.operation", "SELECT"),
	)
	return nil
}

func (s *Service) apiCall(ctx context.Context) error {
	ctx, span := s.instruments.ExternalAPITracer.Start(ctx, SpanAPICall,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	url := s.config.PostsURL
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		err = domain.NewExternalAPIError(http.MethodGet, url, err)
		observability.RecordSpanError(span, err)
		return err
	}
	defer resp.Body.Close()

	if _, err := io.ReadAll(resp.Body); err != nil {
		err = domain.NewExternalAPIError(http.MethodGet, url, fmt.Errorf("read body: %w", err))
		observability.RecordSpanError(span, err)
		return err
	}

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.String("http.url", url),
	)
	return nil
}

// ProcessSingleActivity runs business logic and an outbound call as children
// of one root span and tags the root with their results.
func (s *Service) ProcessSingleActivity(ctx context.Context) (string, error) {
	ctx, span := s.instruments.ExternalAPITracer.Start(ctx, SpanAPICallV2,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(attribute.String("customTag", "example"))

	result, err := s.businessLogic(ctx)
	if err != nil {
		observability.RecordSpanError(span, err)
		return "", err
	}

	status, err := s.externalHTTPCall(ctx)
	if err != nil {
		observability.RecordSpanError(span, err)
		return "", err
	}

	span.SetAttributes(
		attribute.String("BusinessLogicResult", result),
		attribute.String("HttpResponseCode", strconv.Itoa(status)),
	)
	return SingleTaskMessage, nil
}

func (s *Service) businessLogic(ctx context.Context) (string, error) {
	ctx, span := s.instruments.ExternalAPITracer.Start(ctx, SpanBusinessLogic,
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if err := sleep(ctx, s.config.BusinessLogicDelay); err != nil {
		observability.RecordSpanError(span, err)
		return "", fmt.Errorf("business logic: %w", err)
	}
	return BusinessLogicResult, nil
}

func (s *Service) externalHTTPCall(ctx context.Context) (int, error) {
	ctx, span := s.instruments.ExternalAPITracer.Start(ctx, SpanExternalHTTPCall,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	url := s.config.ExampleURL
	resp, err := s.client.Get(ctx, url)
	if err != nil {
		err = domain.NewExternalAPIError(http.MethodGet, url, err)
		observability.RecordSpanError(span, err)
		return 0, err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		err = domain.NewExternalAPIError(http.MethodGet, url, fmt.Errorf("read body: %w", err))
		observability.RecordSpanError(span, err)
		return 0, err
	}

	if date := resp.Header.Get("Date"); date != "" {
		span.SetAttributes(attribute.String("HttpCallResponseTime", date))
	}
	return resp.StatusCode, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
