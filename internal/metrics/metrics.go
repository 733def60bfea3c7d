// Package metrics exposes Prometheus collectors for the vault service.
package metrics

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vault_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vault_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	deposits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault_service",
			Subsystem: "vault",
			Name:      "deposits_total",
			Help:      "Total number of deposit operations.",
		},
		[]string{"status"},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault_service",
			Subsystem: "vault",
			Name:      "withdrawals_total",
			Help:      "Total number of withdrawal operations.",
		},
		[]string{"status"},
	)

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault_service",
			Subsystem: "vault",
			Name:      "claims_total",
			Help:      "Total number of XP claim operations.",
		},
		[]string{"status"},
	)

	reentrancyRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vault_service",
			Subsystem: "vault",
			Name:      "reentrancy_rejections_total",
			Help:      "Operations rejected by the reentrancy guard.",
		},
	)

	totalPrincipal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vault_service",
			Subsystem: "vault",
			Name:      "total_principal",
			Help:      "Sum of all live per-user principal entries, in base units.",
		},
	)

	feesCollected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vault_service",
			Subsystem: "vault",
			Name:      "fees_collected",
			Help:      "Fees currently retained by the treasury, in base units.",
		},
	)

	xpDistributed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vault_service",
			Subsystem: "vault",
			Name:      "xp_distributed_total",
			Help:      "Total XP distributed across all accounts.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		deposits,
		withdrawals,
		claims,
		reentrancyRejections,
		totalPrincipal,
		feesCollected,
		xpDistributed,
	)
}

// Handler returns the HTTP handler serving the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncrementInFlight bumps the in-flight HTTP gauge.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight drops the in-flight HTTP gauge.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled HTTP request.
func RecordHTTPRequest(method, path, status string, seconds float64) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordDeposit counts a deposit outcome ("ok" or "error").
func RecordDeposit(status string) { deposits.WithLabelValues(status).Inc() }

// RecordWithdrawal counts a withdrawal outcome.
func RecordWithdrawal(status string) { withdrawals.WithLabelValues(status).Inc() }

// RecordClaim counts a claim outcome.
func RecordClaim(status string) { claims.WithLabelValues(status).Inc() }

// RecordReentrancyRejection counts a guard rejection.
func RecordReentrancyRejection() { reentrancyRejections.Inc() }

// SetLedgerTotals publishes the vault-wide accumulators.
func SetLedgerTotals(principal, fees *big.Int, xp uint64) {
	totalPrincipal.Set(approx(principal))
	feesCollected.Set(approx(fees))
	xpDistributed.Set(float64(xp))
}

// approx converts a big integer to float64 for gauge export. Precision
// loss above 2^53 is acceptable for monitoring.
func approx(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
