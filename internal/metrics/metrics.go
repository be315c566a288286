// Package metrics holds the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatepass_http_request_duration_seconds",
		Help:    "HTTP request latency by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// TransitionsTotal counts committed workflow transitions by action.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_transitions_total",
		Help: "Committed gatepass status transitions by action",
	}, []string{"action"})

	// TransitionConflictsTotal counts conditional updates that lost a race.
	TransitionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_transition_conflicts_total",
		Help: "Gatepass transitions rejected because the record was already processed",
	})

	// MessagesSentTotal counts outbound notification deliveries.
	MessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_messages_sent_total",
		Help: "Outbound notification deliveries by channel and status",
	}, []string{"channel", "status"})
)
