package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records admin authentication attempts by result
	// (success|unauthorized|forbidden|error).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credsvc_auth_attempts_total",
			Help: "Total number of admin authentication attempts",
		},
		[]string{"result"},
	)

	// PasswordResets counts credential provisioning operations by outcome
	// (updated|created|error).
	PasswordResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credsvc_password_resets_total",
			Help: "Total number of password set/reset operations",
		},
		[]string{"result"},
	)

	// IdentifierFallbacks counts conflict-triggered fallback identifier retries.
	IdentifierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credsvc_identifier_fallbacks_total",
			Help: "Total number of login identifier conflict fallbacks",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credsvc_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
