package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	"github.com/hiredeck/hiredeck/internal/access/domain"
)

func TestSessionGuard(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "acme")
	env.createAccount(t, org.ID, "alice@example.com", "correct horse battery", domain.RoleAdmin)

	token := env.login(t, "acme", "alice@example.com", "correct horse battery")

	t.Run("missing token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/orgs/acme/auth/session", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cookie transport", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/orgs/acme/auth/session", "", withCookie(token))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "alice@example.com")
	})

	t.Run("bearer transport", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/orgs/acme/auth/session", "", withBearer(token))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/orgs/acme/auth/session", "", withCookie(token+"x"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown tenant beats authentication", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/orgs/nowhere/auth/session", "", withCookie(token))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCrossTenantTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	acme := env.createOrganization(t, "acme")
	env.createOrganization(t, "globex")
	env.createAccount(t, acme.ID, "alice@example.com", "correct horse battery", domain.RoleOwner)

	token := env.login(t, "acme", "alice@example.com", "correct horse battery")

	// A perfectly valid acme token presented against globex.
	rec := env.do(http.MethodGet, "/v1/orgs/globex/auth/session", "", withCookie(token))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// The response is indistinguishable from any other invalid session.
	invalid := env.do(http.MethodGet, "/v1/orgs/globex/auth/session", "", withCookie("garbage"))
	require.JSONEq(t, invalid.Body.String(), rec.Body.String())

	// But it is recorded: exactly one cross-tenant audit event.
	events := env.auditEvents(t, audit.EventCrossTenantRejected)
	require.Len(t, events, 1)
	require.Equal(t, acme.ID, events[0]["token_org_id"])
}
