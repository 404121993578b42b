// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for go-cryptoki.
// It exposes operation counters and latency histograms, token call
// counters, session pool gauges and process resource gauges.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all cryptoki metrics
	Namespace = "cryptoki"

	// Label names
	LabelKind       = "kind"
	LabelMechanism  = "mechanism"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelCall       = "call"
	LabelState      = "state"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Pool session states
	StateIdle   = "idle"
	StateInUse  = "in_use"
	StateClosed = "closed"
)

var (
	// OperationsTotal counts finished cryptographic operations by kind,
	// mechanism and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of cryptographic operations by kind, mechanism, and status",
		},
		[]string{LabelKind, LabelMechanism, LabelStatus},
	)

	// OperationDuration tracks the time from init to termination of an
	// operation. Buckets are tuned for token round trips.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of cryptographic operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{LabelKind, LabelMechanism},
	)

	// ErrorsTotal counts failed operations by kind and error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation kind and error type",
		},
		[]string{LabelKind, LabelErrorType},
	)

	// ActiveOperations tracks operations between init and termination.
	ActiveOperations = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_operations",
			Help:      "Number of active operations by kind",
		},
		[]string{LabelKind},
	)

	// TokenCallsTotal counts calls into a PKCS#11 module by C function name.
	TokenCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "token",
			Name:      "calls_total",
			Help:      "Total number of PKCS#11 calls by function and status",
		},
		[]string{LabelCall, LabelStatus},
	)

	// PoolSessions tracks session pool occupancy by state.
	PoolSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "pool",
			Name:      "sessions",
			Help:      "Number of pooled sessions by state",
		},
		[]string{LabelState},
	)

	// PoolWaitSeconds tracks how long callers wait to acquire a session.
	PoolWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "pool",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for a pooled session in seconds",
			Buckets:   []float64{.0001, .001, .01, .05, .1, .5, 1, 5, 30},
		},
	)

	// HTTPRequestsTotal tracks requests to the metrics endpoint.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// Goroutines tracks the current number of goroutines.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// Uptime tracks seconds since the resource collector started.
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the resource collector started",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records a finished operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	sig, err := engine.Sign(m, key, data)
//	metrics.RecordOperation("sign", m.Name(), metrics.StatusOf(err), time.Since(start))
func RecordOperation(kind, mechanism, status string, duration time.Duration) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(kind, mechanism, status).Inc()
	OperationDuration.WithLabelValues(kind, mechanism).Observe(duration.Seconds())
}

// RecordError records an error event. Error types should be specific, for
// example "CKR_SIGNATURE_INVALID" or "buffer_too_small".
func RecordError(kind, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(kind, errorType).Inc()
}

// IncrementActiveOperations increments the active operation gauge for kind.
func IncrementActiveOperations(kind string) {
	if !enabled.Load() {
		return
	}
	ActiveOperations.WithLabelValues(kind).Inc()
}

// DecrementActiveOperations decrements the active operation gauge for kind.
func DecrementActiveOperations(kind string) {
	if !enabled.Load() {
		return
	}
	ActiveOperations.WithLabelValues(kind).Dec()
}

// RecordTokenCall counts one PKCS#11 call.
func RecordTokenCall(call string, err error) {
	if !enabled.Load() {
		return
	}
	TokenCallsTotal.WithLabelValues(call, StatusOf(err)).Inc()
}

// SetPoolSessions sets the number of pooled sessions in state.
func SetPoolSessions(state string, count int) {
	if !enabled.Load() {
		return
	}
	PoolSessions.WithLabelValues(state).Set(float64(count))
}

// ObservePoolWait records the time a caller waited for a session.
func ObservePoolWait(d time.Duration) {
	if !enabled.Load() {
		return
	}
	PoolWaitSeconds.Observe(d.Seconds())
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// StatusOf maps err to StatusSuccess or StatusError.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
