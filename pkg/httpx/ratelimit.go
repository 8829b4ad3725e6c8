package httpx

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hiredeck/hiredeck/pkg/ratelimit"
	"github.com/hiredeck/hiredeck/pkg/slogx"
	"golang.org/x/time/rate"
)

// KeyFunc derives the rate-limit key for a request.
type KeyFunc func(*http.Request) string

// SetDecisionHeaders exposes the rate-limit decision surface on the
// response. Set on every response, allowed or not.
func SetDecisionHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// WriteRateLimited answers a denied request: Retry-After plus a 429 body.
// Callers are expected to have set the decision headers already.
func WriteRateLimited(w http.ResponseWriter, r *http.Request, d ratelimit.Decision) {
	retryAfter := max(int(time.Until(d.ResetAt).Seconds()), 1)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	slogx.FromContext(r.Context()).Warn("rate limit exceeded",
		"path", r.URL.Path,
		"retry_after", retryAfter,
	)

	WriteJSON(w, http.StatusTooManyRequests, map[string]string{
		"error":             "rate_limited",
		"error_description": "Too many requests. Please try again later.",
	})
}

// RateLimit enforces a fixed-window limit per derived key. Every response
// carries the decision surface (X-RateLimit-*); a denial becomes 429 with
// Retry-After. Handlers whose key depends on the request body check the
// limiter inline instead and reuse the same helpers.
func RateLimit(l *ratelimit.Limiter, limit int, window time.Duration, keyFn KeyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Check(r.Context(), keyFn(r), limit, window)
			SetDecisionHeaders(w, d)

			if !d.Allowed {
				WriteRateLimited(w, r, d)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Throttle is a coarse per-client token bucket for public system endpoints
// (health checks, metrics). It protects the process from polling storms and
// deliberately has no headers or per-attempt accounting; authentication flows
// use RateLimit instead.
func Throttle(perSecond float64, burst int, keyFn KeyFunc) Middleware {
	var limiters sync.Map // key -> *rate.Limiter

	get := func(key string) *rate.Limiter {
		if l, ok := limiters.Load(key); ok {
			return l.(*rate.Limiter)
		}
		l, _ := limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(perSecond), burst))
		return l.(*rate.Limiter)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !get(keyFn(r)).Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
