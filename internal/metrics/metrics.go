package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "social_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "social_api_active_requests",
			Help: "Requests currently being served",
		},
	)

	// Graph and engagement
	FollowOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_follow_operations_total",
			Help: "Follow and unfollow calls by outcome",
		},
		[]string{"op", "outcome"}, // outcome: changed|noop
	)

	LikeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_like_operations_total",
			Help: "Like and unlike calls by outcome",
		},
		[]string{"op", "outcome"},
	)

	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_notifications_emitted_total",
			Help: "Notifications written, by target type",
		},
		[]string{"target_type"},
	)

	FeedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "social_feed_requests_total",
			Help: "Feed builds served",
		},
	)

	FeedPageSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "social_feed_page_size",
			Help:    "Number of posts returned per feed page",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
	)

	// Background delivery
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_events_published_total",
			Help: "Activity events published to the stream",
		},
		[]string{"type", "result"},
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_events_processed_total",
			Help: "Activity events handled by workers",
		},
		[]string{"type", "result"},
	)

	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_push_deliveries_total",
			Help: "Push notification delivery attempts by result",
		},
		[]string{"result"}, // sent|failed|circuit_open|no_tokens
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "social_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Caches
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"}, // result: hit|miss|error
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordFollow(op string, changed bool) {
	outcome := "noop"
	if changed {
		outcome = "changed"
	}
	FollowOps.WithLabelValues(op, outcome).Inc()
}

func RecordLike(op string, changed bool) {
	outcome := "noop"
	if changed {
		outcome = "changed"
	}
	LikeOps.WithLabelValues(op, outcome).Inc()
}

func RecordFeed(size int) {
	FeedRequests.Inc()
	FeedPageSize.Observe(float64(size))
}

func RecordCacheLookup(cache, result string) {
	CacheLookups.WithLabelValues(cache, result).Inc()
}
