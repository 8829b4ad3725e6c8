package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "access_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "access_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_auth_failures_total",
			Help: "Rejected authentication attempts by surface.",
		},
		[]string{"surface"},
	)

	rateLimitDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_rate_limit_denials_total",
			Help: "Requests denied by the fixed-window rate limiter.",
		},
		[]string{"path"},
	)

	crossTenantRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_cross_tenant_rejections_total",
		Help: "Tokens presented against an organization they were not issued for.",
	})

	invitesAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "access_invites_accepted_total",
		Help: "Invite tokens successfully consumed.",
	})
)

// Init registers the service metrics with the default registry. Call once at
// startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		authFailuresTotal,
		rateLimitDenialsTotal,
		crossTenantRejectionsTotal,
		invitesAcceptedTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncAuthFailure counts a rejected authentication attempt on the named
// surface (login, session, invite_accept).
func IncAuthFailure(surface string) {
	authFailuresTotal.WithLabelValues(surface).Inc()
}

// IncCrossTenantRejection counts a token rejected for organization mismatch.
func IncCrossTenantRejection() {
	crossTenantRejectionsTotal.Inc()
}

// IncInviteAccepted counts a consumed invite.
func IncInviteAccepted() {
	invitesAcceptedTotal.Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight accounting. 429
// responses additionally feed the rate-limit denial counter.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		// Prefer the route pattern so path parameters do not explode the
		// label cardinality.
		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		if sw.code == http.StatusTooManyRequests {
			rateLimitDenialsTotal.WithLabelValues(path).Inc()
		}
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
