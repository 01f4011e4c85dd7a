// Package metrics defines and registers all custom Prometheus metrics for the
// coaching core. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coaching"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// TransitionsTotal counts finished lifecycle transitions.
// Labels:
//   - transition: "register", "approve", "create_coach", "update_role", "update_lead_profile"
//   - outcome: "ok", "validation", "unauthorized", "forbidden", "not_found", "conflict",
//     "partial_failure", "unavailable"
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of lifecycle transitions, by transition and outcome.",
	},
	[]string{"transition", "outcome"},
)

// PartialFailuresTotal counts dual writes where only one store was updated.
// Label:
//   - kind: "partial_registration", "role_sync_failure", "coach_creation_failed"
var PartialFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_failures_total",
		Help:      "Total number of dual writes that left one store updated and the other not.",
	},
	[]string{"kind"},
)

// CompensationsTotal counts compensating actions.
// Labels:
//   - transition: the transition being compensated
//   - result: "ok" or "failed"
var CompensationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "compensations_total",
		Help:      "Total number of compensating actions, by transition and result.",
	},
	[]string{"transition", "result"},
)

// StoreCallDuration measures a single store call made by the lifecycle engine.
// Labels:
//   - store: "identity" or "profile"
//   - op: the store operation (e.g. "insert", "update_metadata")
var StoreCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_call_duration_seconds",
		Help:      "Duration of identity and profile store calls issued by the lifecycle engine.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"store", "op"},
)

// ── Consistency metrics ───────────────────────────────────────────────────────

// RoleDriftIdentities is the number of mismatches found by the last completed audit.
var RoleDriftIdentities = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "role_drift_identities",
		Help:      "Identities whose role disagrees with their profile row, as of the last audit.",
	},
)

// AuditRunsTotal counts consistency audits.
// Label:
//   - result: "ok" or "error"
var AuditRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_runs_total",
		Help:      "Total number of role consistency audits, by result.",
	},
	[]string{"result"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts notification handling results.
// Labels:
//   - kind: notification kind (e.g. "lead_approved")
//   - result: "published", "duplicate", "dropped", "failed"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of lifecycle notifications, by kind and result.",
	},
	[]string{"kind", "result"},
)

// NotificationQueueDepth tracks pending notifications in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
