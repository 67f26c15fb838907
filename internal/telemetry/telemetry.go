package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const namespace = "prizm"

// Metrics holds the service's prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	oracleRequests *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	delivered      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_requests_total",
			Help:      "Oracle completion calls by provider, pipeline and outcome.",
		}, []string{"provider", "op", "outcome"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_seconds",
			Help:      "Oracle completion latency.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
		}, []string{"provider", "op"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Requests answered by the fallback policy instead of the oracle.",
		}, []string{"pipeline"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages pushed to connected recipients.",
		}, []string{"broker"}),
	}
	if reg != nil {
		reg.MustRegister(m.oracleRequests, m.oracleLatency, m.fallbacks, m.delivered)
	}
	return m
}

func (m *Metrics) ObserveOracle(provider, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.oracleRequests.WithLabelValues(provider, op, outcome).Inc()
	m.oracleLatency.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

func (m *Metrics) Fallback(pipeline string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(pipeline).Inc()
}

func (m *Metrics) Delivered(broker string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(broker).Inc()
}

// Tracer returns the service tracer from the global otel provider.
func Tracer() trace.Tracer {
	return otel.Tracer("github.com/mohammad-safakhou/prizm")
}
