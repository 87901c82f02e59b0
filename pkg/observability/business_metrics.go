package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment initiation metrics
	paymentsInitiatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Total number of payment initiations forwarded to the gateway",
	}, []string{
		"flow",   // direct, hosted_session
		"status", // approved, declined, pending, failed
	})

	paymentAmountMinorUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_minor_units_total",
		Help: "Total initiated payment amount in minor units",
	}, []string{
		"flow",
		"currency",
	})

	// Webhook relay metrics
	webhookRelaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_relays_total",
		Help: "Total number of gateway webhooks processed by the relay",
	}, []string{
		"outcome", // delivered, signature_rejected, mapping_missing, delivery_failed, error
		"status",  // approved, declined, pending, unknown
	})
)

// RecordPayment records one payment initiation outcome
func RecordPayment(flow, status, currency string, amountMinor int64) {
	paymentsInitiatedTotal.WithLabelValues(flow, status).Inc()
	if amountMinor > 0 {
		paymentAmountMinorUnits.WithLabelValues(flow, currency).Add(float64(amountMinor))
	}
}

// RecordRelay records one webhook relay outcome
func RecordRelay(outcome, status string) {
	webhookRelaysTotal.WithLabelValues(outcome, status).Inc()
}
