package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	"github.com/hiredeck/hiredeck/internal/access/domain"
	"github.com/hiredeck/hiredeck/internal/access/obs"
	"github.com/hiredeck/hiredeck/internal/access/service"
	"github.com/hiredeck/hiredeck/pkg/httpx"
	"github.com/hiredeck/hiredeck/pkg/ratelimit"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type loginResponse struct {
	AccountID        string    `json:"account_id"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	OrganizationID   string    `json:"organization_id"`
	OrganizationSlug string    `json:"organization_slug"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// LoginHandler authenticates email/password against the tenant resolved from
// the path and mints a session on success.
//
// The rate-limit check runs inline rather than as middleware because the key
// is scope:ip:email; throttling one account from one IP must not penalize
// other accounts behind the same NAT.
type LoginHandler struct {
	Credentials   *service.CredentialService
	Sessions      *service.SessionService
	Audit         *audit.Logger
	Limiter       *ratelimit.Limiter
	LoginLimit    int
	LoginWindow   time.Duration
	TrustProxy    bool
	SecureCookies bool
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	org, ok := OrganizationFromContext(ctx)
	if !ok {
		writeServerError(w)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	key := ratelimit.Key("login", httpx.ClientIP(r, h.TrustProxy), domain.NormalizeEmail(req.Email))
	d := h.Limiter.Check(ctx, key, h.LoginLimit, h.LoginWindow)
	httpx.SetDecisionHeaders(w, d)
	if !d.Allowed {
		httpx.WriteRateLimited(w, r, d)
		return
	}

	account, err := h.Credentials.Verify(ctx, org.ID, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.Audit.Event(ctx, audit.EventLoginFailed,
				"organization_id", org.ID,
				"surface", "login",
			)
			obs.IncAuthFailure("login")
			writeInvalidCredentials(w)
			return
		}
		log.Error("credential verification failed", "error", err)
		writeServerError(w)
		return
	}

	token, claims, err := h.Sessions.Issue(ctx, account, org, req.RememberMe, SessionMetaFromRequest(r, h.TrustProxy))
	if err != nil {
		log.Error("failed to issue session", "error", err)
		writeServerError(w)
		return
	}

	h.Audit.Event(ctx, audit.EventLoginSucceeded,
		"organization_id", org.ID,
		"account_id", account.ID,
	)

	setSessionCookie(w, token, claims.ExpiresAtTime(), h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccountID:        account.ID,
		Email:            account.Email,
		Role:             string(account.Role),
		OrganizationID:   org.ID,
		OrganizationSlug: org.Slug,
		ExpiresAt:        claims.ExpiresAtTime(),
	})
}

// SessionMetaFromRequest captures the request attributes recorded on session
// records.
func SessionMetaFromRequest(r *http.Request, trustProxy bool) service.SessionMeta {
	return service.SessionMeta{
		ClientIP:  httpx.ClientIP(r, trustProxy),
		UserAgent: r.UserAgent(),
	}
}
