package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox publish outcomes.
const (
	OutboxOutcomePublished    = "published"
	OutboxOutcomeRetried      = "retried"
	OutboxOutcomeDeadLettered = "dead_lettered"
)

// OutboxMetrics counts publisher results per event type.
type OutboxMetrics struct {
	events *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(events)
	return &OutboxMetrics{events: events}
}

func (o *OutboxMetrics) Observe(eventType, outcome string) {
	if o == nil || o.events == nil {
		return
	}
	o.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
