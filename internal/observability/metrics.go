package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce            sync.Once
	apiRequestsTotal        *prometheus.CounterVec
	apiLatencySeconds       *prometheus.HistogramVec
	apiErrorsTotal          *prometheus.CounterVec
	realtimeConnections     prometheus.Gauge
	realtimeOnlineUsers     prometheus.Gauge
	realtimeEventsDelivered *prometheus.CounterVec
	realtimeEventsDropped   *prometheus.CounterVec
	notificationsRecorded   *prometheus.CounterVec
	notificationPushesTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		realtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Number of live websocket connections on this node.",
		})

		realtimeOnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_users_online",
			Help: "Number of users with at least one live connection on this node.",
		})

		realtimeEventsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_delivered_total",
			Help: "Events enqueued to live connections, by event name.",
		}, []string{"event"})

		realtimeEventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Events that could not be enqueued to a connection, by reason.",
		}, []string{"reason"})

		notificationsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_recorded_total",
			Help: "Notifications persisted, by kind.",
		}, []string{"kind"})

		notificationPushesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_pushes_total",
			Help: "Live notification pushes attempted, by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			realtimeConnections,
			realtimeOnlineUsers,
			realtimeEventsDelivered,
			realtimeEventsDropped,
			notificationsRecorded,
			notificationPushesTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RealtimeConnections tracks live websocket connections.
func RealtimeConnections() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnections
}

// RealtimeOnlineUsers tracks users with a live connection.
func RealtimeOnlineUsers() prometheus.Gauge {
	RegisterMetrics()
	return realtimeOnlineUsers
}

func RealtimeEventsDelivered() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsDelivered
}

func RealtimeEventsDropped() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsDropped
}

func NotificationsRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsRecorded
}

func NotificationPushes() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationPushesTotal
}

// ObservePresence publishes the registry size gauges.
func ObservePresence(onlineUsers, connections int) {
	RealtimeOnlineUsers().Set(float64(onlineUsers))
	RealtimeConnections().Set(float64(connections))
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
