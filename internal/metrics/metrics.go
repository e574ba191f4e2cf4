// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the per-IP rate limiter",
		},
		[]string{"endpoint"},
	)

	// Message Pipeline Metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of send attempts by resulting status",
		},
		[]string{"status"}, // sent, failed, pending
	)

	SlowModeRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_slow_mode_rejections_total",
			Help: "Total number of sends rejected by slow mode",
		},
	)

	PinLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_pin_limit_rejections_total",
			Help: "Total number of pins rejected by the per-channel cap",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_published_total",
			Help: "Total number of domain events handed to the fan-out bus",
		},
		[]string{"event_type"},
	)

	// Realtime Gateway Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Current number of open WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_frames_sent_total",
			Help: "Total number of frames written to WebSocket clients",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_frames_received_total",
			Help: "Total number of frames read from WebSocket clients",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	WSQueueOverflows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_queue_overflows_total",
			Help: "Total number of outbound queue overflows by applied policy",
		},
		[]string{"policy"},
	)

	PresenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_presence_transitions_total",
			Help: "Total number of presence transitions broadcast",
		},
		[]string{"status"},
	)

	// Webhook Metrics
	WebhookAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_delivery_attempts_total",
			Help: "Total number of webhook delivery attempts by result",
		},
		[]string{"result"}, // success, retry, failed
	)

	WebhookAttemptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_delivery_attempt_duration_seconds",
			Help:    "Duration of webhook delivery attempts",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	WebhookTriggersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_triggers_dropped_total",
			Help: "Total number of events dropped because the trigger queue was full",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Scheduler Metrics
	SchedulerTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_total",
			Help: "Total number of scheduled task executions by kind and result",
		},
		[]string{"kind", "result"}, // result: ok, error
	)

	SchedulerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_queue_depth",
			Help: "Number of tasks currently held by the scheduler queue",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordMessageSend records the outcome status of a send.
func RecordMessageSend(status string) {
	MessagesSent.WithLabelValues(status).Inc()
}

// RecordEvent records a domain event handed to the bus.
func RecordEvent(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordWebhookAttempt records one delivery attempt.
func RecordWebhookAttempt(result string, duration time.Duration) {
	WebhookAttempts.WithLabelValues(result).Inc()
	WebhookAttemptDuration.Observe(duration.Seconds())
}

// RecordCircuitBreakerTransition records a breaker state change.
// States are encoded 0=closed, 1=half-open, 2=open.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordSchedulerTask records a task execution.
func RecordSchedulerTask(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SchedulerTasks.WithLabelValues(kind, result).Inc()
}
