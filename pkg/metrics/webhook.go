package metrics

import "github.com/prometheus/client_golang/prometheus"

// Webhook outcomes reported by the payment webhook handler.
const (
	WebhookOutcomeCompleted    = "completed"
	WebhookOutcomeFailed       = "failed"
	WebhookOutcomeDuplicate    = "duplicate"
	WebhookOutcomeIgnored      = "ignored"
	WebhookOutcomeBadSignature = "bad_signature"
	WebhookOutcomeError        = "error"
)

// WebhookMetrics counts payment webhook deliveries by outcome.
type WebhookMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counter on reg.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_webhooks_total",
		Help:      "Payment gateway webhook deliveries by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &WebhookMetrics{outcomes: outcomes}
}

// Observe increments the counter for outcome.
func (w *WebhookMetrics) Observe(outcome string) {
	if w == nil || w.outcomes == nil {
		return
	}
	w.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
