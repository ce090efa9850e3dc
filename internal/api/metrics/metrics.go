// Package metrics defines and registers all custom Prometheus metrics for the
// tunestream API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation via promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tunestream"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login and registration attempts.
// Labels:
//   - flow: "login" or "register"
//   - result: "success", "invalid_credentials", "conflict", "invalid_payload", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of login and registration attempts, by outcome.",
	},
	[]string{"flow", "result"},
)

// TokenRejectionsTotal counts requests turned away by the token verifier.
// Label:
//   - reason: "missing_header", "malformed_header", "invalid_token", "forbidden_role"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_token_rejections_total",
		Help:      "Total number of requests rejected by bearer token verification or RBAC.",
	},
	[]string{"reason"},
)

// ── Payment metrics ───────────────────────────────────────────────────────────

// PaymentsCreatedTotal counts checkouts started.
var PaymentsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_created_total",
		Help:      "Total number of payments created.",
	},
)

// PaymentNotificationsTotal counts gateway callbacks.
// Labels:
//   - source: "ipn" or "return"
//   - result: "applied", "already_final", "invalid_signature", "not_found", "amount_mismatch", "error"
var PaymentNotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_notifications_total",
		Help:      "Total number of payment gateway notifications, by source and result.",
	},
	[]string{"source", "result"},
)

// ReconcileQueueDepth tracks the number of return callbacks waiting per worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ReconcileQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "payment_reconcile_queue_depth",
		Help:      "Current number of gateway notifications pending in each reconciliation worker.",
	},
	[]string{"worker_id"},
)

// ReconcileDroppedTotal counts notifications the dispatcher refused to queue.
// Label:
//   - reason: "queue_full", "stopped", "cancelled"
var ReconcileDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_reconcile_dropped_total",
		Help:      "Total number of gateway notifications dropped instead of queued for reconciliation.",
	},
	[]string{"reason"},
)

// ReconcileDuration measures how long applying one queued notification takes.
var ReconcileDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_reconcile_duration_seconds",
		Help:      "Duration of applying a queued gateway notification.",
		Buckets:   prometheus.DefBuckets,
	},
)
