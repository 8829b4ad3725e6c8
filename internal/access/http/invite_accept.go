package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	"github.com/hiredeck/hiredeck/internal/access/obs"
	"github.com/hiredeck/hiredeck/internal/access/service"
	"github.com/hiredeck/hiredeck/pkg/httpx"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

type inviteAcceptRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type inviteAcceptResponse struct {
	AccountID        string    `json:"account_id"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	OrganizationID   string    `json:"organization_id"`
	OrganizationSlug string    `json:"organization_slug"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// InviteAcceptHandler consumes an invite: sets the password, provisions the
// account and signs the caller in. Public within the tenant and rate limited
// like login, since the token is the only credential.
type InviteAcceptHandler struct {
	Invites       *service.InviteService
	Audit         *audit.Logger
	TrustProxy    bool
	SecureCookies bool
}

func (h *InviteAcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	org, ok := OrganizationFromContext(ctx)
	if !ok {
		writeServerError(w)
		return
	}

	var req inviteAcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	// Pin the invite to the tenant in the path before consuming anything.
	// An invite accepted through the wrong organization reads as unknown.
	invite, err := h.Invites.Peek(ctx, req.Token)
	if err != nil && !errors.Is(err, service.ErrInviteAccepted) && !errors.Is(err, service.ErrInviteExpired) {
		obs.IncAuthFailure("invite_accept")
		writeInviteError(w, ctx, err)
		return
	}
	if invite.OrganizationID != org.ID {
		obs.IncAuthFailure("invite_accept")
		writeError(w, http.StatusNotFound, "not_found", "Unknown invite")
		return
	}

	account, sessionToken, claims, err := h.Invites.Accept(ctx, req.Token, req.Password, SessionMetaFromRequest(r, h.TrustProxy))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, "invalid_request", "Password is too short")
		case errors.Is(err, service.ErrInviteNotFound),
			errors.Is(err, service.ErrInviteAccepted),
			errors.Is(err, service.ErrInviteExpired):
			obs.IncAuthFailure("invite_accept")
			writeInviteError(w, ctx, err)
		default:
			log.Error("failed to accept invite", "error", err)
			writeServerError(w)
		}
		return
	}

	h.Audit.Event(ctx, audit.EventInviteAccepted,
		"organization_id", account.OrganizationID,
		"account_id", account.ID,
	)
	obs.IncInviteAccepted()

	setSessionCookie(w, sessionToken, claims.ExpiresAtTime(), h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, inviteAcceptResponse{
		AccountID:        account.ID,
		Email:            account.Email,
		Role:             string(account.Role),
		OrganizationID:   account.OrganizationID,
		OrganizationSlug: org.Slug,
		ExpiresAt:        claims.ExpiresAtTime(),
	})
}
