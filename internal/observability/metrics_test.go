package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_observable", prometheus.NewRegistry())

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.HTTPRequestsInFlight)
	assert.NotNil(t, m.OutboundRequestsTotal)
	assert.NotNil(t, m.OutboundRequestsFailed)
	assert.NotNil(t, m.OutboundRequestDuration)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("test_dup", reg)

	assert.Panics(t, func() { NewMetrics("test_dup", reg) })
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics("test_http", prometheus.NewRegistry())

	m.RecordHTTPRequest("POST", "/observable/login", "200", 0.01)
	m.RecordHTTPRequest("POST", "/observable/login", "200", 0.02)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/observable/login", "200")))

	histCount, err := getHistogramSampleCount(m.HTTPRequestDuration.WithLabelValues("POST", "/observable/login").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), histCount)
}

func TestRecordOutboundRequest(t *testing.T) {
	m := NewMetrics("test_outbound", prometheus.NewRegistry())

	m.RecordOutboundRequest("example.com", "200", 0.3)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboundRequestsTotal.WithLabelValues("example.com", "200")))

	histCount, err := getHistogramSampleCount(m.OutboundRequestDuration.WithLabelValues("example.com").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordOutboundRequestFailed(t *testing.T) {
	m := NewMetrics("test_outbound_failed", prometheus.NewRegistry())

	m.RecordOutboundRequestFailed("example.com", "timeout", 1.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboundRequestsFailed.WithLabelValues("example.com", "timeout")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.OutboundRequestsTotal))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
