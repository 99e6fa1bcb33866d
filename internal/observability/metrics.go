// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PolicyDecisions counts authorization outcomes by action.
	PolicyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_policy_decisions_total",
		Help: "Authorization decisions by action and outcome",
	}, []string{"action", "outcome"})

	// ConcurrencyConflicts counts optimistic-concurrency conflicts by resource and resolution.
	ConcurrencyConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_concurrency_conflicts_total",
		Help: "Version conflicts on update, by resource and how they resolved",
	}, []string{"resource", "resolution"})

	// DatabaseQueryLatency records repository latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EventsPublished counts domain events published to Redis by type and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_events_published_total",
		Help: "Domain events published to the event channel",
	}, []string{"event_type", "result"})
)

// RecordDecision increments PolicyDecisions.
func RecordDecision(action, outcome string) {
	PolicyDecisions.WithLabelValues(action, outcome).Inc()
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
