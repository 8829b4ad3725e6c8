package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	"github.com/hiredeck/hiredeck/internal/access/domain"
	"github.com/hiredeck/hiredeck/internal/access/obs"
	"github.com/hiredeck/hiredeck/internal/access/service"
	"github.com/hiredeck/hiredeck/internal/access/store"
	"github.com/hiredeck/hiredeck/pkg/httpx"
	"github.com/hiredeck/hiredeck/pkg/ratelimit"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

// RateLimits carries the fixed-window budgets for the abuse-prone surfaces.
type RateLimits struct {
	LoginLimit   int
	LoginWindow  time.Duration
	AcceptLimit  int
	AcceptWindow time.Duration
}

// DefaultRateLimits suit a small deployment; production tunes them through
// config.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		LoginLimit:   10,
		LoginWindow:  5 * time.Minute,
		AcceptLimit:  10,
		AcceptWindow: 5 * time.Minute,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	store     store.Store
	logger    *slog.Logger
	auditLog  *audit.Logger
	limiter   *ratelimit.Limiter
	limits    RateLimits
	version   string
	startTime time.Time

	trustProxy    bool
	secureCookies bool

	Credentials *service.CredentialService
	Sessions    *service.SessionService
	Invites     *service.InviteService
}

// RouterOptions bundles the environment-dependent knobs.
type RouterOptions struct {
	Version       string
	TrustProxy    bool
	SecureCookies bool
	Limits        RateLimits
}

func NewRouter(
	st store.Store,
	limiter *ratelimit.Limiter,
	auditLog *audit.Logger,
	logger *slog.Logger,
	opts RouterOptions,
) *Router {
	if opts.Limits.LoginLimit == 0 {
		opts.Limits = DefaultRateLimits()
	}

	r := &Router{
		Mux:           http.NewServeMux(),
		store:         st,
		logger:        logger,
		auditLog:      auditLog,
		limiter:       limiter,
		limits:        opts.Limits,
		version:       opts.Version,
		startTime:     time.Now(),
		trustProxy:    opts.TrustProxy,
		secureCookies: opts.SecureCookies,
	}

	// Instrument sits innermost so it sees the matched route pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(logger),
		obs.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerInvites()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	tenant := resolveTenant(r.store)
	guarded := requireSession(r.Sessions, r.auditLog)

	login := &LoginHandler{
		Credentials:   r.Credentials,
		Sessions:      r.Sessions,
		Audit:         r.auditLog,
		Limiter:       r.limiter,
		LoginLimit:    r.limits.LoginLimit,
		LoginWindow:   r.limits.LoginWindow,
		TrustProxy:    r.trustProxy,
		SecureCookies: r.secureCookies,
	}
	r.Mux.Handle("POST /v1/orgs/{slug}/auth/login", httpx.Chain(login, tenant))

	logout := &LogoutHandler{
		Sessions:      r.Sessions,
		Audit:         r.auditLog,
		SecureCookies: r.secureCookies,
	}
	r.Mux.Handle("POST /v1/orgs/{slug}/auth/logout", httpx.Chain(logout, tenant))

	r.Mux.Handle("GET /v1/orgs/{slug}/auth/session",
		httpx.Chain(SessionHandler(), tenant, guarded))

	globalLogin := &GlobalLoginHandler{
		Credentials:   r.Credentials,
		Sessions:      r.Sessions,
		Audit:         r.auditLog,
		Limiter:       r.limiter,
		LoginLimit:    r.limits.LoginLimit,
		LoginWindow:   r.limits.LoginWindow,
		TrustProxy:    r.trustProxy,
		SecureCookies: r.secureCookies,
	}
	r.Mux.Handle("POST /v1/auth/login", globalLogin)
}

func (r *Router) registerInvites() {
	tenant := resolveTenant(r.store)
	guarded := requireSession(r.Sessions, r.auditLog)

	issue := &InviteIssueHandler{Invites: r.Invites, Audit: r.auditLog}
	r.Mux.Handle("POST /v1/orgs/{slug}/invites",
		httpx.Chain(issue, tenant, guarded, requireRole(domain.RoleAdmin)))

	peek := &InvitePeekHandler{Invites: r.Invites}
	r.Mux.Handle("GET /v1/orgs/{slug}/invites/{token}", httpx.Chain(peek, tenant))

	accept := &InviteAcceptHandler{
		Invites:       r.Invites,
		Audit:         r.auditLog,
		TrustProxy:    r.trustProxy,
		SecureCookies: r.secureCookies,
	}
	r.Mux.Handle("POST /v1/orgs/{slug}/invites/accept",
		httpx.Chain(accept, tenant,
			httpx.RateLimit(r.limiter, r.limits.AcceptLimit, r.limits.AcceptWindow,
				func(req *http.Request) string {
					return ratelimit.Key("invite_accept", httpx.ClientIP(req, r.trustProxy))
				}),
		))
}

func (r *Router) registerSystem() {
	// Health endpoints get a coarse per-IP throttle; monitoring may poll
	// them but storms should not reach the database.
	throttle := httpx.Throttle(5, 10, func(req *http.Request) string {
		return httpx.ClientIP(req, r.trustProxy)
	})

	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.version), throttle))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.version, r.store), throttle))
	r.Mux.Handle("GET /metrics", obs.Handler())
}
