// Package metrics exposes Prometheus instrumentation for the journal service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracking pipeline
	PositionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_positions_processed_total",
			Help: "Positions evaluated by the filter, by decision",
		},
		[]string{"decision"}, // "accepted", "jitter", "rejected"
	)

	DistanceAccrued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_distance_accrued_meters_total",
			Help: "Distance accrued from GPS movement in meters",
		},
	)

	RouteDiscontinuities = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_route_discontinuities_total",
			Help: "Route restarts caused by large position jumps",
		},
	)

	StepsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_steps_total",
			Help: "Steps added from motion samples or step reports",
		},
	)

	LocationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_location_errors_total",
			Help: "Location sensor errors reported by clients",
		},
		[]string{"code"},
	)

	// Progression
	LevelUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_level_ups_total",
			Help: "Total number of level-ups",
		},
	)

	AchievementsUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_achievements_unlocked_total",
			Help: "Achievements unlocked, by achievement id",
		},
		[]string{"achievement"},
	)

	ActiveJournals = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "journal_active_journals",
			Help: "Number of user journals loaded in memory",
		},
	)

	// Persistence
	PersistenceWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_persistence_writes_total",
			Help: "Background store writes, by job and result",
		},
		[]string{"job", "result"}, // result: "success", "failure", "rejected", "dropped"
	)

	PersistenceQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "journal_persistence_queue_depth",
			Help: "Write jobs waiting in the queue",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "WebSocket messages sent, by type",
		},
		[]string{"type"},
	)
)

// RecordAPIRequest records one HTTP request
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
