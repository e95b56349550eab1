package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterVec(t *testing.T) {
	m := NewMetrics("eduquest").(*Metrics)
	m.RegisterCounterVec("http_requests_total", "Total number of requests", []string{"route"})

	m.IncCounterVec("http_requests_total", "/login")
	m.IncCounterVec("http_requests_total", "/login")
	m.IncCounterVec("http_requests_total", "/streak")
	m.IncCounterVec("unknown_total", "/login")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.counterVecs["http_requests_total"].WithLabelValues("/login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.counterVecs["http_requests_total"].WithLabelValues("/streak")))
}

func TestCounterAndGauge(t *testing.T) {
	m := NewMetrics("eduquest").(*Metrics)
	m.RegisterCounter("registered_users_total", "Users registered")
	m.RegisterGauge("outbox_depth", "Pending mutations")

	m.IncCounter("registered_users_total")
	m.SetGauge("outbox_depth", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.counters["registered_users_total"]))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.gauges["outbox_depth"]))
}

func TestHistogramVecIsNamespaced(t *testing.T) {
	m := NewMetrics("eduquest").(*Metrics)
	m.RegisterHistogramVec("http_request_duration_seconds", "Request duration", []float64{0.1, 1}, []string{"route"})

	m.ObserveHistogramVec("http_request_duration_seconds", 0.2, "/login")

	families, err := m.GetRegistry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "eduquest_http_request_duration_seconds")
}
