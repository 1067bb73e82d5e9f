package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records payment gateway calls by operation and outcome.
type GatewayMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment_gateway",
		Name:      "calls_total",
		Help:      "Payment gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "payment_gateway",
		Name:      "call_duration_seconds",
		Help:      "Latency of payment gateway calls in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})
	reg.MustRegister(calls, latency)
	return &GatewayMetrics{calls: calls, latency: latency}
}

// Observe records one call.
func (g *GatewayMetrics) Observe(operation, outcome string, took time.Duration) {
	if g == nil || g.calls == nil {
		return
	}
	op := normalizeLabel(operation)
	g.calls.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	g.latency.WithLabelValues(op).Observe(took.Seconds())
}
