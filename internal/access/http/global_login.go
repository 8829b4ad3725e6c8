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

type organizationOption struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type globalLoginResponse struct {
	// Exactly one of the two shapes is populated. A resolved login carries
	// the session payload; an ambiguous one lists the organizations to pick
	// from and mints nothing.
	Session       *loginResponse       `json:"session,omitempty"`
	Organizations []organizationOption `json:"organizations,omitempty"`
}

// GlobalLoginHandler is the cross-organization login surface for users who
// land on the product without a tenant URL. When the same credentials are
// valid in several organizations it returns the list and defers; no session
// exists until the caller logs in through a specific tenant.
type GlobalLoginHandler struct {
	Credentials   *service.CredentialService
	Sessions      *service.SessionService
	Audit         *audit.Logger
	Limiter       *ratelimit.Limiter
	LoginLimit    int
	LoginWindow   time.Duration
	TrustProxy    bool
	SecureCookies bool
}

func (h *GlobalLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	key := ratelimit.Key("global_login", httpx.ClientIP(r, h.TrustProxy), domain.NormalizeEmail(req.Email))
	d := h.Limiter.Check(ctx, key, h.LoginLimit, h.LoginWindow)
	httpx.SetDecisionHeaders(w, d)
	if !d.Allowed {
		httpx.WriteRateLimited(w, r, d)
		return
	}

	result, err := h.Credentials.VerifyAcrossOrganizations(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.Audit.Event(ctx, audit.EventLoginFailed, "surface", "global_login")
			obs.IncAuthFailure("global_login")
			writeInvalidCredentials(w)
			return
		}
		log.Error("global credential verification failed", "error", err)
		writeServerError(w)
		return
	}

	if result.Ambiguous() {
		options := make([]organizationOption, 0, len(result.Candidates))
		for _, org := range result.Candidates {
			options = append(options, organizationOption{Slug: org.Slug, Name: org.Name})
		}
		httpx.WriteJSON(w, http.StatusOK, globalLoginResponse{Organizations: options})
		return
	}

	token, claims, err := h.Sessions.Issue(ctx, result.Account, result.Organization, req.RememberMe, SessionMetaFromRequest(r, h.TrustProxy))
	if err != nil {
		log.Error("failed to issue session", "error", err)
		writeServerError(w)
		return
	}

	h.Audit.Event(ctx, audit.EventLoginSucceeded,
		"organization_id", result.Organization.ID,
		"account_id", result.Account.ID,
		"surface", "global_login",
	)

	setSessionCookie(w, token, claims.ExpiresAtTime(), h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, globalLoginResponse{Session: &loginResponse{
		AccountID:        result.Account.ID,
		Email:            result.Account.Email,
		Role:             string(result.Account.Role),
		OrganizationID:   result.Organization.ID,
		OrganizationSlug: result.Organization.Slug,
		ExpiresAt:        claims.ExpiresAtTime(),
	}})
}
