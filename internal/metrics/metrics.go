// Package metrics provides Prometheus instrumentation for the admission gate and admin login.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gate rejection reasons
const (
	ReasonURLTooLong     = "url_too_long"
	ReasonQueryTooLong   = "query_too_long"
	ReasonBodyTooLarge   = "body_too_large"
	ReasonMissingAgent   = "missing_user_agent"
	ReasonDeniedAgent    = "denied_user_agent"
	ReasonRateLimited    = "rate_limited"
	ReasonAdminCookieReq = "admin_cookie_required"
)

// Login outcomes
const (
	LoginSuccess  = "success"
	LoginFailure  = "failure"
	LoginLockout  = "lockout"
	LoginBlocked  = "blocked"
	LoginRecovery = "recovery"
	LoginError    = "error"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lulus_spp",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route pattern.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lulus_spp",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GateRejectionsTotal counts requests turned away by the admission gate.
	GateRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lulus_spp",
		Subsystem: "gate",
		Name:      "rejections_total",
		Help:      "Requests rejected by the admission gate by reason and bucket.",
	}, []string{"reason", "bucket"})

	// LoginAttemptsTotal counts admin login attempts by outcome.
	LoginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lulus_spp",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Admin login attempts by outcome.",
	}, []string{"outcome"}) // "success", "failure", "lockout", "blocked", "recovery", "error"
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GateRejectionsTotal,
		LoginAttemptsTotal,
	)
}

// RecordGateRejection increments the rejection counter. bucket is empty for non-rate-limit reasons.
func RecordGateRejection(reason, bucket string) {
	GateRejectionsTotal.WithLabelValues(reason, bucket).Inc()
}

// RecordLogin increments the login outcome counter.
func RecordLogin(outcome string) {
	LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RegisterLimiterSize exposes the number of tracked admission counters.
func RegisterLimiterSize(size func() int) error {
	return prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "lulus_spp",
		Subsystem: "gate",
		Name:      "tracked_counters",
		Help:      "Number of in-memory admission counters.",
	}, func() float64 {
		return float64(size())
	}))
}

// Middleware records request count and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
