package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics scraped from the service's metrics
// endpoint. They describe the transport: inbound HTTP requests and outbound
// HTTP calls. Application counters (logins, completed tasks) are OpenTelemetry
// instruments, see Instruments.
type Metrics struct {
	// HTTPRequestsTotal counts handled requests, labeled by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes request handling time in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInFlight is the number of requests currently being served.
	HTTPRequestsInFlight prometheus.Gauge

	// OutboundRequestsTotal counts completed outbound calls, labeled by host and status code.
	OutboundRequestsTotal *prometheus.CounterVec

	// OutboundRequestsFailed counts outbound calls that produced no response, labeled by host and error type.
	OutboundRequestsFailed *prometheus.CounterVec

	// OutboundRequestDuration observes outbound call duration in seconds, labeled by host.
	OutboundRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Inbound
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP request handling in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		}),

		// Outbound
		OutboundRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_total",
			Help:      "Total number of outbound HTTP requests that received a response",
		}, []string{"host", "status"}),
		OutboundRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_failed_total",
			Help:      "Total number of outbound HTTP requests that failed without a response",
		}, []string{"host", "error_type"}),
		OutboundRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbound_request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"host"}),
	}
}

// RecordHTTPRequest records a handled inbound request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordOutboundRequest records an outbound call that received a response.
func (m *Metrics) RecordOutboundRequest(host, status string, durationSeconds float64) {
	m.OutboundRequestsTotal.WithLabelValues(host, status).Inc()
	m.OutboundRequestDuration.WithLabelValues(host).Observe(durationSeconds)
}

// RecordOutboundRequestFailed records an outbound call that failed without a response.
func (m *Metrics) RecordOutboundRequestFailed(host, errorType string, durationSeconds float64) {
	m.OutboundRequestsFailed.WithLabelValues(host, errorType).Inc()
	m.OutboundRequestDuration.WithLabelValues(host).Observe(durationSeconds)
}
