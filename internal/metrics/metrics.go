// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "libreshare"

var (
	// Sync Cycle Metrics
	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_cycles_total",
			Help:      "Total number of sync cycles run",
		},
		[]string{"result"}, // "success", "failure"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync cycles in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}, // blocked retries and 429 cooldowns stretch cycles to minutes
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_errors_total",
			Help:      "Total number of failed sync cycles",
		},
		[]string{"error_type"}, // "auth", "rate_limited", "no_connections", "upload", "circuit_open", "other"
	)

	ReadingsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_fetched_total",
			Help:      "Total number of readings returned by LibreLinkUp",
		},
	)

	ReadingsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_uploaded_total",
			Help:      "Total number of readings accepted by Dexcom Share",
		},
	)

	ReadingsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_skipped_total",
			Help:      "Total number of fetched readings that were not uploaded",
		},
	)

	DedupWindowSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedup_window_entries",
			Help:      "Current number of forwarded timestamps held for deduplication",
		},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_success_timestamp",
			Help:      "Unix timestamp of last successful sync cycle",
		},
	)

	// LibreLinkUp Metrics
	LibreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "libre_requests_total",
			Help:      "Total number of LibreLinkUp requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: "ok", "blocked", "error"
	)

	LibreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "libre_request_duration_seconds",
			Help:      "LibreLinkUp request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	LibreBlockedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "libre_blocked_responses_total",
			Help:      "Total number of LibreLinkUp responses classified as blocked",
		},
		[]string{"reason"}, // "status", "cloudflare", "empty_body", "html"
	)

	LibreTimestampParseWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "libre_timestamp_parse_warnings_total",
			Help:      "Total number of glucose points whose timestamp could not be parsed",
		},
	)

	// Dexcom Share Metrics
	DexcomRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dexcom_requests_total",
			Help:      "Total number of Dexcom Share requests",
		},
		[]string{"endpoint", "status_code"},
	)

	DexcomReauth = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dexcom_reauth_total",
			Help:      "Total number of Dexcom Share session recoveries",
		},
	)

	DexcomRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dexcom_rate_limited_total",
			Help:      "Total number of Dexcom Share HTTP 429 responses",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_consecutive_failures",
			Help:      "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Status Surface Metrics
	StatusRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_requests_total",
			Help:      "Total number of status surface requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	StatusRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "status_request_duration_seconds",
			Help:      "Status surface request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	// Process Metrics
	CrashLoopFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crash_loop_failures",
			Help:      "Consecutive unclean exits recorded at startup",
		},
	)
)

// RecordSyncSuccess records a completed sync cycle
func RecordSyncSuccess(duration time.Duration, fetched, uploaded, skipped int) {
	SyncCycles.WithLabelValues("success").Inc()
	SyncDuration.Observe(duration.Seconds())
	ReadingsFetched.Add(float64(fetched))
	ReadingsUploaded.Add(float64(uploaded))
	ReadingsSkipped.Add(float64(skipped))
	SyncLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordSyncFailure records a failed sync cycle under the given error category
func RecordSyncFailure(duration time.Duration, errorType string) {
	if errorType == "" {
		errorType = "other"
	}
	SyncCycles.WithLabelValues("failure").Inc()
	SyncDuration.Observe(duration.Seconds())
	SyncErrors.WithLabelValues(errorType).Inc()
}

// RecordLibreRequest records one LibreLinkUp HTTP attempt
func RecordLibreRequest(endpoint, outcome string, duration time.Duration) {
	LibreRequests.WithLabelValues(endpoint, outcome).Inc()
	LibreRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordLibreBlocked records a blocked LibreLinkUp response
func RecordLibreBlocked(reason string) {
	LibreBlockedResponses.WithLabelValues(reason).Inc()
}

// RecordDexcomRequest records one Dexcom Share HTTP exchange
func RecordDexcomRequest(endpoint string, statusCode int) {
	DexcomRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordStatusRequest records a status surface request
func RecordStatusRequest(method, endpoint, statusCode string, duration time.Duration) {
	StatusRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	StatusRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
