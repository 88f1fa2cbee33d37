// Package observability provides application metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedCacheRequests counts index feed cache lookups by result (hit, miss, error).
	FeedCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_feed_cache_requests_total",
		Help: "Index feed cache lookups by result",
	}, []string{"result"})

	// FollowOperations counts follow and unfollow calls by outcome.
	FollowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_follow_operations_total",
		Help: "Follow and unfollow operations by action and outcome",
	}, []string{"action", "outcome"})

	// OutboxEvents counts relayed follow events by final status.
	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_outbox_events_total",
		Help: "Follow events processed by the outbox relay",
	}, []string{"status"})

	// DatabaseQueryLatency records feed query latency by operation.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RealtimeEvents counts events pushed to websocket clients by type.
	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_realtime_events_total",
		Help: "Realtime events delivered to websocket clients",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped for slow websocket clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_websocket_backpressure_drops_total",
		Help: "Messages dropped because a websocket client buffer was full or closed",
	}, []string{"hub", "reason"})
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
