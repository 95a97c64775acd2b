// Package observability holds the Prometheus metrics of the ledger and the
// order workflow. Metrics register on the default registry via promauto and
// are served by the API at /metrics.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// TransactionsPosted counts ledger transactions by outcome.
var TransactionsPosted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "ledger",
	Name:      "transactions_total",
	Help:      "Ledger transactions by result.",
}, []string{"result"})

// EntriesPosted counts entries written by committed transactions.
var EntriesPosted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Ledger entries written.",
})

// PostLatency tracks how long a posting unit of work takes.
var PostLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "soko",
	Subsystem: "ledger",
	Name:      "post_duration_seconds",
	Help:      "Duration of ledger posting units of work.",
	Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
})

// ─── Order Metrics ──────────────────────────────────────────────────────────

// OrderTransitions counts transition attempts by edge and outcome.
var OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "orders",
	Name:      "transitions_total",
	Help:      "Order status transitions by edge and result.",
}, []string{"from", "to", "result"})

// Refunds counts refunds by whether seller funds were clawed back.
var Refunds = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "orders",
	Name:      "refunds_total",
	Help:      "Refunded orders by payout state at refund time.",
}, []string{"payout"})

// CommissionCollected sums platform commission in minor units.
var CommissionCollected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "orders",
	Name:      "commission_minor_units_total",
	Help:      "Platform commission credited, in minor currency units.",
}, []string{"currency"})

// ─── Notification Metrics ───────────────────────────────────────────────────

// NotificationsSent counts delivered notifications by sink.
var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "notify",
	Name:      "sent_total",
	Help:      "Notifications delivered by sink.",
}, []string{"sink"})

// NotificationsDropped counts notifications lost to a full queue or a failing sink.
var NotificationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "notify",
	Name:      "dropped_total",
	Help:      "Notifications dropped by reason.",
}, []string{"reason"})

// ─── Stats Cache Metrics ────────────────────────────────────────────────────

// StatsCacheLookups counts admin stats reads by hit or miss.
var StatsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "soko",
	Subsystem: "stats",
	Name:      "cache_lookups_total",
	Help:      "Admin stats cache lookups by result.",
}, []string{"result"})

// ─── Helpers ────────────────────────────────────────────────────────────────

// ResultLabel turns an error into a low-cardinality metric label.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrLedgerConfiguration):
		return "misconfigured"
	}
	return "error"
}

// ObservePost records the outcome and duration of one posting.
func ObservePost(start time.Time, entries int, err error) {
	PostLatency.Observe(time.Since(start).Seconds())
	TransactionsPosted.WithLabelValues(ResultLabel(err)).Inc()
	if err == nil {
		EntriesPosted.Add(float64(entries))
	}
}
