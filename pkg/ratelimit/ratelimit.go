// Package ratelimit implements a fixed-window request counter used to bound
// repeated operations (login attempts, invite redemptions) per logical key.
//
// The counter state lives behind the Store interface: the in-memory store
// serves single-process deployments, the Redis store gives multiple instances
// one shared atomic counter with the same Check contract.
package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Decision is the outcome of a single Check call. Callers translate a denial
// into HTTP 429 plus Retry-After and X-RateLimit-* headers.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store is an atomic per-key counter. Hit increments key's counter within its
// current window, starting a fresh window when none exists or the previous
// one has elapsed, and reports the count after increment plus the instant the
// window resets.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// Limiter applies a fixed-window policy over a Store.
//
// Check never panics and never propagates store errors: because the limiter
// guards authentication, an internal fault denies by default. FailOpen flips
// that to allow, for deployments that prefer availability over throttling.
type Limiter struct {
	store    Store
	failOpen bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// FailOpen makes the limiter allow requests when the counter store errors.
// The default is to deny.
func FailOpen() Option {
	return func(l *Limiter) { l.failOpen = true }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records one hit against key and decides whether it is within the
// first limit hits of the current window. Keys are fully independent.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) Decision {
	count, resetAt, err := l.store.Hit(ctx, key, window)
	if err != nil {
		slog.Default().Error("rate limit counter store failed",
			slog.String("key", key),
			slog.Bool("fail_open", l.failOpen),
			slog.Any("error", err),
		)
		return Decision{
			Allowed:   l.failOpen,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   time.Now().Add(window),
		}
	}

	d := Decision{Limit: limit, ResetAt: resetAt}
	if count <= limit {
		d.Allowed = true
		d.Remaining = limit - count
	}
	return d
}

// Key builds a composite limit key from a scope and identifiers, e.g.
// Key("login", ip, email) -> "login:203.0.113.9:jo@acme.test". Scoping by both
// IP and identifier throttles brute force on one account without penalizing
// unrelated callers behind the same NAT.
func Key(scope string, parts ...string) string {
	b := make([]string, 0, len(parts)+1)
	b = append(b, scope)
	for _, p := range parts {
		if p == "" {
			p = "unknown"
		}
		b = append(b, p)
	}
	return strings.Join(b, ":")
}
