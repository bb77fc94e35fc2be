package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	httpRequestsTotal         *prometheus.CounterVec
	httpLatencySeconds        *prometheus.HistogramVec
	httpErrorsTotal           *prometheus.CounterVec
	workflowTransitionsTotal  *prometheus.CounterVec
	dispatchFailuresTotal     *prometheus.CounterVec
	notificationsPublished    *prometheus.CounterVec
	remindersDeliveredTotal   prometheus.Counter
	notificationStreamsActive prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		workflowTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_workflow_transitions_total",
			Help: "Workflow state transitions by entity and target state.",
		}, []string{"entity", "to"})

		dispatchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_dispatch_failures_total",
			Help: "Notification dispatch jobs that exhausted their retries.",
		}, []string{"event"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications delivered to subscribers by type.",
		}, []string{"type"})

		remindersDeliveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_delivered_total",
			Help: "Reminders converted into notifications by the sweeper.",
		})

		notificationStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_streams_active",
			Help: "Open SSE and websocket notification subscribers.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			workflowTransitionsTotal,
			dispatchFailuresTotal,
			notificationsPublished,
			remindersDeliveredTotal,
			notificationStreamsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// WorkflowTransitions counts successful submission, task and exam transitions.
func WorkflowTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowTransitionsTotal
}

// DispatchFailures counts dispatch jobs dropped after retries.
func DispatchFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchFailuresTotal
}

// NotificationsPublishedTotal counts notifications pushed to subscribers.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// RemindersDelivered counts reminders turned into notifications.
func RemindersDelivered() prometheus.Counter {
	RegisterMetrics()
	return remindersDeliveredTotal
}

// SSEClientsActive tracks open notification streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return notificationStreamsActive
}
