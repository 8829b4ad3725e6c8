package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	"github.com/hiredeck/hiredeck/internal/access/domain"
	"github.com/hiredeck/hiredeck/internal/access/service"
	"github.com/hiredeck/hiredeck/pkg/httpx"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

type inviteIssueRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	TTLHours int    `json:"ttl_hours,omitempty"`
}

type inviteIssueResponse struct {
	Token     string    `json:"token"`
	InviteID  string    `json:"invite_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InviteIssueHandler mints invite tokens. Runs behind requireSession and
// requireRole(admin); the raw token appears in this response and nowhere
// else, ever.
type InviteIssueHandler struct {
	Invites *service.InviteService
	Audit   *audit.Logger
}

func (h *InviteIssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id, ok := IdentityFromContext(ctx)
	if !ok {
		writeInvalidSession(w)
		return
	}

	var req inviteIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}

	role := domain.Role(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "role must be one of owner, admin, viewer")
		return
	}

	// Nobody may hand out more privilege than they hold themselves.
	if !id.Role.AtLeast(role) {
		writeError(w, http.StatusForbidden, "forbidden", "Cannot invite above your own role")
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour

	token, invite, err := h.Invites.Issue(ctx, id.OrganizationID, req.Email, role, ttl, id.AccountID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInviteRequest) {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid invite parameters")
			return
		}
		log.Error("failed to issue invite", "error", err)
		writeServerError(w)
		return
	}

	h.Audit.Event(ctx, audit.EventInviteIssued,
		"organization_id", invite.OrganizationID,
		"invite_id", invite.ID,
		"role", string(invite.Role),
		"created_by", id.AccountID,
	)

	httpx.WriteJSON(w, http.StatusCreated, inviteIssueResponse{
		Token:     token,
		InviteID:  invite.ID,
		Email:     invite.Email,
		Role:      string(invite.Role),
		ExpiresAt: invite.ExpiresAt,
	})
}
