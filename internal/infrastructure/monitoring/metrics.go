package monitoring

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)

	AuthRedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_redirects_total",
			Help: "Requests redirected by route access rules",
		},
		[]string{"access", "target"},
	)
)

var (
	CartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart mutations by operation",
		},
		[]string{"operation"},
	)

	StaleStateRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_stale_state_retries_total",
			Help: "State saves that lost a version race and were re-applied",
		},
	)

	CheckoutAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_checkout_attempts_total",
			Help: "Total number of place-order attempts",
		},
	)

	CheckoutSuccessTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_checkout_success_total",
			Help: "Place-order attempts handed to the gateway",
		},
	)

	CheckoutFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_failure_total",
			Help: "Failed place-order attempts",
		},
		[]string{"reason"},
	)

	PaymentResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_results_total",
			Help: "Gateway results received, by channel and status",
		},
		[]string{"channel", "status"},
	)

	PaymentRelayRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_payment_relay_rejected_total",
			Help: "Relay messages refused before processing",
		},
		[]string{"reason"},
	)

	PaymentAttemptsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_payment_attempts_expired_total",
			Help: "Pending attempts expired by the reconciler",
		},
	)

	SessionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_sessions_expired_total",
			Help: "Sessions ended after a failed token refresh",
		},
	)
)

var (
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_request_duration_seconds",
			Help:    "Duration of marketplace API calls in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

var (
	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)

	RedisLockSuccessTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_lock_success_total",
			Help: "Total number of successful lock acquisitions",
		},
		[]string{"lock_type"},
	)

	RedisLockFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_lock_failure_total",
			Help: "Total number of failed lock acquisitions",
		},
		[]string{"lock_type", "reason"},
	)
)

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		DBQueryDuration.WithLabelValues(queryType, table).Observe(time.Since(start).Seconds())
	}
}

func RecordUpstreamRequest(endpoint, status string, d time.Duration) {
	UpstreamRequestDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

func RecordCartOperation(operation string) {
	CartOperationsTotal.WithLabelValues(operation).Inc()
}

func RecordStaleStateRetry() {
	StaleStateRetriesTotal.Inc()
}

func RecordAuthRedirect(access, target string) {
	AuthRedirectsTotal.WithLabelValues(access, target).Inc()
}

func RecordSessionExpired() {
	SessionsExpiredTotal.Inc()
}

func RecordRelayRejected(reason string) {
	PaymentRelayRejectedTotal.WithLabelValues(reason).Inc()
}

func RecordAttemptsExpired(n int64) {
	PaymentAttemptsExpiredTotal.Add(float64(n))
}

// lockType keeps label cardinality bounded: "<prefix>:<sid>:lock:<name>"
// reports as <name>.
func lockType(lockKey string) string {
	const marker = ":lock:"
	if i := strings.LastIndex(lockKey, marker); i >= 0 {
		return lockKey[i+len(marker):]
	}
	return "other"
}
