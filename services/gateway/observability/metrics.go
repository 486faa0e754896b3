// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the gateway.
//
// # Description
//
// Metrics cover the operational hot spots of the validation line:
//   - Request counters (by endpoint, status)
//   - Vision call counters and latency
//   - Validation verdicts by status
//   - Workflow transition counters
//   - Auth failures
//
// Metrics are exposed via the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "galleytrack"

const gatewaySubsystem = "gateway"

// GatewayMetrics holds all Prometheus metrics for the gateway.
//
// Initialize once at startup via InitMetrics; duplicate initialization
// panics on re-registration.
type GatewayMetrics struct {
	// RequestsTotal counts API requests by endpoint and status.
	// Labels: endpoint (login, flight_lookup, validate, ...), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// VisionCallsTotal counts vision analyses by outcome.
	// Labels: status (success, schema_violation, error)
	VisionCallsTotal *prometheus.CounterVec

	// VisionDurationSeconds measures vision call latency.
	VisionDurationSeconds prometheus.Histogram

	// ValidationsTotal counts cart validation verdicts by status
	// (OK, ERROR_VISUAL, WARNING_VISUAL, ERROR_PESO, ERROR).
	ValidationsTotal *prometheus.CounterVec

	// WorkflowTransitionsTotal counts state machine events by event name
	// and outcome.
	// Labels: event (submit_flight, select_cart, ...), outcome (ok, rejected, error)
	WorkflowTransitionsTotal *prometheus.CounterVec

	// AuthFailuresTotal counts rejected requests by cause.
	// Labels: cause (missing_token, invalid_token, insufficient_role, bad_credentials)
	AuthFailuresTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *GatewayMetrics

// InitMetrics creates and registers all gateway metrics. Call once at
// application startup.
func InitMetrics() *GatewayMetrics {
	DefaultMetrics = &GatewayMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Total API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		VisionCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "vision_calls_total",
				Help:      "Total vision analyses by outcome",
			},
			[]string{"status"},
		),

		VisionDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "vision_duration_seconds",
				Help:      "Vision call latency in seconds",
				Buckets:   []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
		),

		ValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "validations_total",
				Help:      "Cart validation verdicts by status",
			},
			[]string{"status"},
		),

		WorkflowTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "workflow_transitions_total",
				Help:      "Workflow state machine events by event and outcome",
			},
			[]string{"event", "outcome"},
		),

		AuthFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "auth_failures_total",
				Help:      "Rejected requests by cause",
			},
			[]string{"cause"},
		),
	}
	return DefaultMetrics
}
