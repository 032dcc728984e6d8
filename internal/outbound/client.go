// Package outbound provides the traced, rate-limited HTTP client used for
// calls leaving the service.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/observable-api/internal/observability"
)

// Config configures the outbound client.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Zero disables limiting.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// UserAgent is sent when the request carries none.
	UserAgent string
}

// Option customizes a Client.
type Option func(*Client)

// WithTracerProvider sets the provider for client spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.otelOpts = append(c.otelOpts, otelhttp.WithTracerProvider(tp)) }
}

// WithMeterProvider sets the provider for the HTTP client metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) { c.otelOpts = append(c.otelOpts, otelhttp.WithMeterProvider(mp)) }
}

// WithPropagators sets the propagator that injects trace context into
// outgoing headers.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(c *Client) { c.otelOpts = append(c.otelOpts, otelhttp.WithPropagators(p)) }
}

// WithMetrics records per-host call counts and durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransport replaces the base round tripper beneath the instrumentation.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// Client wraps http.Client with tracing, rate limiting and call metrics.
// Failed calls are returned to the caller as is; there are no retries.
// It is safe for concurrent use.
type Client struct {
	client      *http.Client
	rateLimiter *RateLimiter
	metrics     *observability.Metrics
	config      Config

	base     http.RoundTripper
	otelOpts []otelhttp.Option
}

// NewClient creates an outbound client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Second
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-ObservableApi/1.0"
	}

	c := &Client{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.base == nil {
		c.base = http.DefaultTransport
	}

	c.client = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(c.base, c.otelOpts...),
	}
	c.rateLimiter = NewRateLimiter(cfg.RateLimit, cfg.BurstSize)
	return c
}

// Do sends req after waiting for the rate limiter. Any response, whatever its
// status, is returned to the caller, who must close the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	if err := c.rateLimiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	host := req.URL.Host
	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordOutboundRequestFailed(host, classifyError(err), elapsed)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordOutboundRequest(host, strconv.Itoa(resp.StatusCode), elapsed)
	}
	return resp, nil
}

// Get issues a GET to url bound to ctx.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.Do(req)
}

// classifyError maps a transport error to a low-cardinality metric label.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}
	return "other"
}
