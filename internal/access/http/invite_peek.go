package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/service"
	"github.com/hiredeck/hiredeck/pkg/httpx"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

type invitePeekResponse struct {
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	OrganizationSlug string    `json:"organization_slug"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// InvitePeekHandler is the read-only invite check the accept form loads
// from. It never consumes the invite; peeking any number of times leaves it
// acceptable.
type InvitePeekHandler struct {
	Invites *service.InviteService
}

func (h *InvitePeekHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	org, ok := OrganizationFromContext(ctx)
	if !ok {
		writeServerError(w)
		return
	}

	invite, err := h.Invites.Peek(ctx, r.PathValue("token"))
	if err != nil && !errors.Is(err, service.ErrInviteAccepted) && !errors.Is(err, service.ErrInviteExpired) {
		writeInviteError(w, ctx, err)
		return
	}

	// The invite must belong to the tenant in the path; an invite peeked
	// through the wrong organization reads as unknown, whatever its state.
	if invite.OrganizationID != org.ID {
		writeError(w, http.StatusNotFound, "not_found", "Unknown invite")
		return
	}
	if err != nil {
		writeInviteError(w, ctx, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, invitePeekResponse{
		Email:            invite.Email,
		Role:             string(invite.Role),
		OrganizationSlug: org.Slug,
		ExpiresAt:        invite.ExpiresAt,
	})
}

// writeInviteError maps the invite lifecycle errors onto the status
// taxonomy: unknown 404, consumed 409, expired 400.
func writeInviteError(w http.ResponseWriter, ctx context.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInviteNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Unknown invite")
	case errors.Is(err, service.ErrInviteAccepted):
		writeError(w, http.StatusConflict, "invite_accepted", "Invite has already been accepted")
	case errors.Is(err, service.ErrInviteExpired):
		writeError(w, http.StatusBadRequest, "invite_expired", "Invite has expired")
	default:
		slogx.FromContext(ctx).Error("invite lookup failed", "error", err)
		writeServerError(w)
	}
}
