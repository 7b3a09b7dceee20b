package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	// Payment lifecycle metrics
	paymentApprovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_approvals_total",
		Help:      "Total payment approval attempts",
	}, []string{
		"status", // approved, rejected, failed
	})

	paymentCompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_completions_total",
		Help:      "Total payment completion attempts",
	}, []string{
		"source", // request, resolve, sweeper
		"status", // completed, duplicate, rejected, failed
	})

	paymentCompletionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_completion_duration_seconds",
		Help:      "Time to complete a payment including the gateway call and ledger transaction",
		// Buckets: 100ms to 30s (gateway round trips dominate)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"source",
	})

	// Reconciliation metrics
	sweepOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_sweep_outcomes_total",
		Help:      "Outcomes of pending payment reconciliation",
	}, []string{
		"outcome", // completed, cancelled, awaiting_tx, abandoned, error
	})

	pendingPaymentsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_payments_stale",
		Help:      "Number of stale pending payments seen by the last sweep",
	})

	// Payout metrics
	payoutRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_requests_total",
		Help:      "Total payout requests",
	}, []string{
		"status", // created, below_minimum, failed
	})

	payoutAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_amount_total",
		Help:      "Total amount requested for payout, in payment network currency",
	})

	// Catalog metrics
	booksListedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "books_listed_total",
		Help:      "Total books listed",
	})

	pdfAccessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pdf_access_total",
		Help:      "PDF access checks",
	}, []string{
		"status", // granted, denied
	})

	// Event publishing metrics
	eventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Domain events handed to the event publisher",
	}, []string{
		"event_type",
		"status", // success, failed
	})

	eventsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_delivered_total",
		Help:      "Queued events written to the broker, or given up on",
	}, []string{
		"status", // success, failed
	})

	eventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_queue_depth",
		Help:      "Events waiting to be written to the broker",
	})
)

// RecordPaymentApproval records an approval attempt
func RecordPaymentApproval(status string) {
	paymentApprovalsTotal.WithLabelValues(status).Inc()
}

// RecordPaymentCompletion records a completion attempt and its duration
func RecordPaymentCompletion(source, status string, duration float64) {
	paymentCompletionsTotal.WithLabelValues(source, status).Inc()
	paymentCompletionDuration.WithLabelValues(source).Observe(duration)
}

// RecordSweepOutcome records the outcome of resolving one pending payment
func RecordSweepOutcome(outcome string) {
	sweepOutcomesTotal.WithLabelValues(outcome).Inc()
}

// SetStalePendingPayments records how many stale pending payments the last sweep found
func SetStalePendingPayments(n int) {
	pendingPaymentsGauge.Set(float64(n))
}

// RecordPayoutRequest records a payout attempt. Amount only counts for created requests.
func RecordPayoutRequest(status string, amount decimal.Decimal) {
	payoutRequestsTotal.WithLabelValues(status).Inc()
	if status == "created" {
		payoutAmountTotal.Add(amount.InexactFloat64())
	}
}

// RecordBookListed records a new catalog listing
func RecordBookListed() {
	booksListedTotal.Inc()
}

// RecordPDFAccess records whether a PDF request was granted
func RecordPDFAccess(granted bool) {
	status := "denied"
	if granted {
		status = "granted"
	}
	pdfAccessTotal.WithLabelValues(status).Inc()
}

// RecordEventPublished records an event publish attempt
func RecordEventPublished(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	eventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// RecordEventsDelivered records the broker outcome for a batch of queued events
func RecordEventsDelivered(count int, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	eventsDeliveredTotal.WithLabelValues(status).Add(float64(count))
}

// SetEventQueueDepth records how many events wait for the broker
func SetEventQueueDepth(n int) {
	eventQueueDepth.Set(float64(n))
}
