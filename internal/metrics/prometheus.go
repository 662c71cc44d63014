// Package metrics defines the Prometheus metrics exported by the podcast
// player: fetch/retry counters, playback timing, session lifecycle, and
// control-server HTTP metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the podcast player
type Metrics struct {
	// Script generation metrics
	ScriptRequests prometheus.Counter
	ScriptFailures prometheus.Counter

	// Turn fetch metrics
	TurnsFetched  prometheus.Counter
	FetchRetries  prometheus.Counter
	FetchFailures prometheus.Counter

	// Playback metrics
	TurnsPlayed      prometheus.Counter
	PlaybackDuration prometheus.Histogram
	DecodeFailures   prometheus.Counter

	// Session metrics
	SessionsStarted    prometheus.Counter
	SessionsEnded      prometheus.Counter
	PrefetchMisses     prometheus.Counter
	QuestionsSubmitted prometheus.Counter

	// Control server metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates and registers all metrics on reg
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScriptRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_script_requests_total",
			Help: "Total number of podcast script generation requests",
		}),
		ScriptFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_script_failures_total",
			Help: "Total number of failed script generation requests",
		}),

		TurnsFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_turns_fetched_total",
			Help: "Total number of turns successfully fetched from the backend",
		}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_fetch_retries_total",
			Help: "Total number of turn fetch retry attempts",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_fetch_failures_total",
			Help: "Total number of turn fetches that exhausted all attempts",
		}),

		TurnsPlayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_turns_played_total",
			Help: "Total number of turns played to completion",
		}),
		PlaybackDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "podcast_playback_duration_seconds",
			Help:    "Wall-clock playback duration per turn",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~2 minutes
		}),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_decode_failures_total",
			Help: "Total number of turns whose audio could not be decoded",
		}),

		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_sessions_started_total",
			Help: "Total number of podcast sessions started",
		}),
		SessionsEnded: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_sessions_ended_total",
			Help: "Total number of podcast sessions that reached the end state",
		}),
		PrefetchMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_prefetch_misses_total",
			Help: "Sessions ended early because the prefetched turn was not ready",
		}),
		QuestionsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "podcast_questions_submitted_total",
			Help: "Total number of audience questions submitted",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podcast_http_requests_total",
			Help: "Total number of control API requests",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "podcast_http_request_duration_seconds",
			Help:    "Control API request duration",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "podcast_http_errors_total",
			Help: "Total number of control API error responses",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordHTTPRequest records a completed control API request
func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, duration float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordHTTPError records a control API error response
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
