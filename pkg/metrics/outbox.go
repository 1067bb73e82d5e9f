package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics counts publisher outcomes per event type.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events by type and publish outcome (published, retry, dead_letter).",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(outcomes)
	return &OutboxMetrics{outcomes: outcomes}
}

func (o *OutboxMetrics) IncPublished(eventType string) {
	o.inc(eventType, "published")
}

func (o *OutboxMetrics) IncRetry(eventType string) {
	o.inc(eventType, "retry")
}

func (o *OutboxMetrics) IncDeadLetter(eventType string) {
	o.inc(eventType, "dead_letter")
}

func (o *OutboxMetrics) inc(eventType, outcome string) {
	if o == nil || o.outcomes == nil {
		return
	}
	o.outcomes.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}
