package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Sign-in counter
	SignInCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "platform_sign_in_total",
			Help: "Total number of sign-in attempts",
		},
	)

	// Public tenant signup counter
	SignupCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "platform_signup_total",
			Help: "Total number of tenant signup attempts",
		},
	)

	// Token refresh counter
	RefreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "platform_token_refresh_total",
			Help: "Total number of session token refreshes",
		},
	)

	// Tenant resolution outcomes
	TenantResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_tenant_resolutions_total",
			Help: "Total number of host-to-tenant resolutions by outcome",
		},
		[]string{"outcome"}, // outcome can be "root", "tenant", "not_found"
	)

	// Subscription gate outcomes
	SubscriptionGateCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_subscription_gate_total",
			Help: "Total number of subscription gate checks by outcome",
		},
		[]string{"outcome"}, // outcome can be "pass", "blocked", "bypass"
	)

	// Authorization denials by permission code
	PermissionDenialCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_permission_denials_total",
			Help: "Total number of denied permission checks",
		},
		[]string{"permission"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_auth_errors_total",
			Help: "Total number of authentication and authorization errors",
		},
		[]string{"type"}, // type can be "invalid_credentials", "account_deactivated", "cross_tenant" etc.
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active tokens
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "platform_active_tokens",
			Help: "Number of currently active session tokens",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "platform_info",
			Help: "Information about the platform service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(SignInCounter)
	prometheus.MustRegister(SignupCounter)
	prometheus.MustRegister(RefreshCounter)
	prometheus.MustRegister(TenantResolutionCounter)
	prometheus.MustRegister(SubscriptionGateCounter)
	prometheus.MustRegister(PermissionDenialCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(HTTPRequestCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordTenantResolution increments the resolution counter for an outcome
func RecordTenantResolution(outcome string) {
	TenantResolutionCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordGateOutcome increments the subscription gate counter
func RecordGateOutcome(outcome string) {
	SubscriptionGateCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordPermissionDenial increments the denial counter for a permission code
func RecordPermissionDenial(permission string) {
	PermissionDenialCounter.With(prometheus.Labels{"permission": permission}).Inc()
}

// IncreaseActiveTokens increments the active token gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			endpoint := c.Path()
			method := c.Request().Method

			labels := prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   strconv.Itoa(status),
			}
			HTTPRequestCounter.With(labels).Inc()
			RequestDuration.With(labels).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
