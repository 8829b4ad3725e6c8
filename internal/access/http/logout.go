package http

import (
	"net/http"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	"github.com/hiredeck/hiredeck/internal/access/service"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

// LogoutHandler revokes the presented session and clears the cookie. It is
// deliberately lenient: a missing or already-invalid token still gets a 204
// and a cleared cookie, so logout never fails from the user's point of view.
type LogoutHandler struct {
	Sessions      *service.SessionService
	Audit         *audit.Logger
	SecureCookies bool
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if token := extractToken(r); token != "" {
		if err := h.Sessions.Revoke(ctx, token); err != nil {
			// Persisting the revocation failed; the cookie still gets
			// cleared, but the token stays live until expiry. Worth a log.
			slogx.FromContext(ctx).Error("failed to revoke session", "error", err)
		} else {
			h.Audit.Event(ctx, audit.EventSessionRevoked)
		}
	}

	clearSessionCookie(w, h.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}
