package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveOracle("openai", "match", "ok", 120*time.Millisecond)
	m.ObserveOracle("openai", "match", "rate_limit", time.Second)
	m.Fallback("match")
	m.Delivered("local")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.oracleRequests.WithLabelValues("openai", "match", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.delivered.WithLabelValues("local")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.oracleLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOracle("p", "op", "ok", time.Second)
		m.Fallback("chat")
		m.Delivered("redis")
	})
}
