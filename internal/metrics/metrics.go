// Package metrics defines the Prometheus metrics of the responder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatDurationSeconds *prometheus.HistogramVec
	GoalInferredTotal   *prometheus.CounterVec

	// Rule table health
	PatternErrorsTotal *prometheus.CounterVec

	// Stats collaborator
	PersistenceErrorsTotal *prometheus.CounterVec

	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Sessions and jobs
	ActiveSessions   prometheus.Gauge
	ArchiveRunsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ChatRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_chat_requests_total",
				Help: "Total number of answered messages by intent and transport",
			},
			[]string{"intent", "transport"}, // transport: http, line, cli
		),

		ChatDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptc_chat_duration_seconds",
				Help:    "Time to answer one message, including session and stats writes",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"transport"},
		),

		GoalInferredTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_goal_inferred_total",
				Help: "Total number of messages that set or confirmed a goal",
			},
			[]string{"goal"},
		),

		PatternErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_pattern_errors_total",
				Help: "Malformed patterns skipped at startup by rule",
			},
			[]string{"rule"},
		),

		PersistenceErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_persistence_errors_total",
				Help: "Failed stats, log or session writes by operation",
			},
			[]string{"operation"},
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptc_webhook_duration_seconds",
				Help:    "LINE webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"event_type"}, // event_type: message, follow, other
		),

		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_webhook_requests_total",
				Help: "Total number of LINE webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_request, rate_limit, invalid_signature, forbidden
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"}, // limiter: session
		),

		ActiveSessions: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "ptc_active_sessions",
				Help: "Sessions held by the in-memory store after the last cleanup",
			},
		),

		ArchiveRunsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptc_archive_runs_total",
				Help: "Interaction log archive uploads by status",
			},
			[]string{"status"}, // status: success, error
		),
	}

	return m
}

// RecordChat records one answered message
func (m *Metrics) RecordChat(intent, transport string, duration float64) {
	m.ChatRequestsTotal.WithLabelValues(intent, transport).Inc()
	m.ChatDurationSeconds.WithLabelValues(transport).Observe(duration)
}

// RecordGoal records an inferred goal
func (m *Metrics) RecordGoal(goal string) {
	m.GoalInferredTotal.WithLabelValues(goal).Inc()
}

// RecordPatternError records a skipped pattern
func (m *Metrics) RecordPatternError(rule string) {
	m.PatternErrorsTotal.WithLabelValues(rule).Inc()
}

// RecordPersistenceError records a failed write
func (m *Metrics) RecordPersistenceError(operation string) {
	m.PersistenceErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordWebhook records a webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetActiveSessions sets the session gauge
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// RecordArchiveRun records an archive job outcome
func (m *Metrics) RecordArchiveRun(status string) {
	m.ArchiveRunsTotal.WithLabelValues(status).Inc()
}
