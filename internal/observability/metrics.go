// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiplog_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shiplog_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsCreated counts successfully stored posts, split by whether they link a project.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiplog_posts_created_total",
		Help: "Total number of posts created",
	}, []string{"linked"})

	// ImageUploads counts image upload attempts by result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiplog_image_uploads_total",
		Help: "Total number of image uploads by result",
	}, []string{"result"})

	// HashtagQueries counts suggestion lookups by strategy and result.
	HashtagQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiplog_hashtag_queries_total",
		Help: "Total number of hashtag suggestion queries",
	}, []string{"strategy", "result"})

	// FeedConnections is the gauge of open live-feed websockets.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shiplog_feed_websocket_connections",
		Help: "Number of open live feed WebSocket connections",
	})

	// FeedBroadcastDrops counts live-feed messages dropped for slow clients.
	FeedBroadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiplog_feed_broadcast_drops_total",
		Help: "Total number of live feed messages dropped due to backpressure",
	})

	// StreaksReset counts streaks zeroed by the broken-streak sweep.
	StreaksReset = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiplog_streaks_reset_total",
		Help: "Total number of streaks reset by the sweep",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// LinkedLabel renders a bool as a metric label value.
func LinkedLabel(linked bool) string {
	if linked {
		return "true"
	}
	return "false"
}
