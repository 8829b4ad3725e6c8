package http

import (
	"net/http"

	"github.com/hiredeck/hiredeck/pkg/httpx"
)

type sessionResponse struct {
	AccountID        string `json:"account_id"`
	SessionID        string `json:"session_id"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	OrganizationID   string `json:"organization_id"`
	OrganizationSlug string `json:"organization_slug"`
}

// SessionHandler echoes the verified identity. Runs behind requireSession,
// so reaching it at all means the token passed signature, expiry, revocation
// and tenant checks.
func SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			writeInvalidSession(w)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, sessionResponse{
			AccountID:        id.AccountID,
			SessionID:        id.SessionID,
			Email:            id.Email,
			Role:             string(id.Role),
			OrganizationID:   id.OrganizationID,
			OrganizationSlug: id.OrganizationSlug,
		})
	}
}
