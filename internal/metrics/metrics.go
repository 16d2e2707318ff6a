// Package metrics holds Prometheus instruments that are used across
// wpmanager.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GatewayCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Remote API calls by service, operation, and outcome.",
		}, []string{"service", "operation", "outcome"})

	GatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Latency of remote API calls.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		}, []string{"service"})

	ProvisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_total",
			Help: "Provisioning requests by final state.",
		}, []string{"state"})

	TimeoutRecoveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provision_timeout_recoveries_total",
			Help: "Account creations recovered after a client-side timeout.",
		})

	BestEffortFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_best_effort_failures_total",
			Help: "Non-fatal side effects that failed, by step.",
		}, []string{"step"})

	ScanRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scan_registered_total",
			Help: "Installations newly registered by scans.",
		})
)

func init() {
	prometheus.MustRegister(
		GatewayCallsTotal,
		GatewayCallDuration,
		ProvisionTotal,
		TimeoutRecoveriesTotal,
		BestEffortFailuresTotal,
		ScanRegisteredTotal,
	)
}
