// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry through promauto and
// updated through the Record* helpers so call sites stay one line long.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync run metrics
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnelsync_run_duration_seconds",
			Help:    "Duration of orchestration runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
		[]string{"mode", "outcome"}, // outcome: success, errors, cancelled
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelsync_records_total",
			Help: "Records processed per stage by decision",
		},
		[]string{"stage", "decision"}, // decision: insert, update, skip, filtered, error
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelsync_errors_total",
			Help: "Errors recorded during runs by kind",
		},
		[]string{"kind"}, // pagination, mapping, lookup, write
	)

	PagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelsync_pages_fetched_total",
			Help: "Source pages fetched",
		},
	)

	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnelsync_last_success_timestamp",
			Help: "Unix timestamp of the last run that finished without errors",
		},
	)

	SchedulerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnelsync_scheduler_state",
			Help: "Scheduler state (0=idle, 1=armed, 2=running)",
		},
	)

	// Source and destination HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnelsync_http_request_duration_seconds",
			Help:    "Outbound HTTP request duration by target and operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target", "operation"}, // target: crm, destination
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelsync_http_rate_limited_total",
			Help: "HTTP 429 responses received by target",
		},
		[]string{"target"},
	)

	// Control API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelsync_api_requests_total",
			Help: "Control API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
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
)

// Scheduler state gauge values.
const (
	SchedulerIdle    = 0
	SchedulerArmed   = 1
	SchedulerRunning = 2
)

// RecordRun records a finished orchestration run.
func RecordRun(mode string, duration time.Duration, errorCount int, cancelled bool) {
	outcome := "success"
	switch {
	case cancelled:
		outcome = "cancelled"
	case errorCount > 0:
		outcome = "errors"
	}
	RunDuration.WithLabelValues(mode, outcome).Observe(duration.Seconds())
	if outcome == "success" {
		LastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordDecision counts one record outcome for a stage.
func RecordDecision(stageID int64, decision string) {
	RecordsTotal.WithLabelValues(strconv.FormatInt(stageID, 10), decision).Inc()
}

// RecordError counts one run error of the given kind.
func RecordError(kind string) {
	ErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordPage counts one fetched source page.
func RecordPage() {
	PagesFetched.Inc()
}

// RecordHTTPRequest records an outbound request duration.
func RecordHTTPRequest(target, operation string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(target, operation).Observe(duration.Seconds())
}

// RecordRateLimited counts an HTTP 429 from target.
func RecordRateLimited(target string) {
	HTTPRateLimited.WithLabelValues(target).Inc()
}

// RecordAPIRequest counts a control API request.
func RecordAPIRequest(method, route string, status int) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// SetSchedulerState publishes the scheduler state.
func SetSchedulerState(state int) {
	SchedulerState.Set(float64(state))
}
