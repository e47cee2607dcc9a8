package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proposta_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proposta_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SignatureRequestsCreated counts created signature requests.
	SignatureRequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proposta_signature_requests_created_total",
		Help: "Total number of signature requests created",
	})

	// SignatoryResponses counts signatory responses by outcome.
	SignatoryResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proposta_signatory_responses_total",
		Help: "Total number of signatory responses by status",
	}, []string{"status"})

	// SignatureRequestTransitions counts request status changes by target status and cause.
	SignatureRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proposta_signature_request_transitions_total",
		Help: "Signature request status transitions",
	}, []string{"to", "cause"})

	// SignatureAccessDenied counts link resolutions refused because the request is closed.
	SignatureAccessDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proposta_signature_access_denied_total",
		Help: "Signing link accesses refused by reason",
	}, []string{"reason"})

	// NotificationDispatches counts signatory notification attempts by kind and result.
	NotificationDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proposta_notification_dispatch_total",
		Help: "Signatory notification dispatch attempts",
	}, []string{"kind", "result"})

	// QuotaRejections counts proposal creations refused by plan.
	QuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proposta_quota_rejections_total",
		Help: "Proposal creations refused because the monthly quota was reached",
	}, []string{"plan"})

	// WebSocketConnections is the gauge of active realtime connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proposta_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketDrops counts realtime messages dropped because a client was slow.
	WebSocketDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proposta_websocket_backpressure_drops_total",
		Help: "WebSocket messages dropped due to backpressure",
	})
)
