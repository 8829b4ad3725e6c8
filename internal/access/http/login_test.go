package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiredeck/hiredeck/internal/access/audit"
	"github.com/hiredeck/hiredeck/internal/access/domain"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "acme")
	env.createAccount(t, org.ID, "alice@example.com", "correct horse battery", domain.RoleAdmin)

	t.Run("success sets the session cookie", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"alice@example.com","password":"correct horse battery"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var resp loginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "alice@example.com", resp.Email)
		require.Equal(t, "acme", resp.OrganizationSlug)

		cookie := sessionCookie(t, rec)
		require.NotEmpty(t, cookie)
	})

	t.Run("cookie attributes", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"alice@example.com","password":"correct horse battery"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var found bool
		for _, c := range rec.Result().Cookies() {
			if c.Name != SessionCookieName {
				continue
			}
			found = true
			require.True(t, c.HttpOnly)
			require.Equal(t, http.SameSiteLaxMode, c.SameSite)
			require.Positive(t, c.MaxAge)
		}
		require.True(t, found)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login", `{not json`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login", `{"email":"alice@example.com"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		unknown := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"ghost@example.com","password":"correct horse battery"}`)
		wrong := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"alice@example.com","password":"not the password"}`)

		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		require.JSONEq(t, unknown.Body.String(), wrong.Body.String())
	})

	t.Run("failed logins are audited", func(t *testing.T) {
		require.NotEmpty(t, env.auditEvents(t, audit.EventLoginFailed))
	})
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "acme")
	env.createAccount(t, org.ID, "alice@example.com", "correct horse battery", domain.RoleAdmin)
	env.createAccount(t, org.ID, "bob@example.com", "a different secret", domain.RoleViewer)

	// Limit is 3 per window in the test env; the key is ip+email.
	for range 3 {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"alice@example.com","password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	t.Run("over-limit attempts are denied with headers", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"alice@example.com","password":"wrong"}`)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("even the right password is denied once limited", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"alice@example.com","password":"correct horse battery"}`)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("other accounts from the same ip are unaffected", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/login",
			`{"email":"bob@example.com","password":"a different secret"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGlobalLogin(t *testing.T) {
	env := newTestEnv(t)
	acme := env.createOrganization(t, "acme")
	globex := env.createOrganization(t, "globex")

	env.createAccount(t, acme.ID, "solo@example.com", "only one place!", domain.RoleAdmin)
	env.createAccount(t, acme.ID, "multi@example.com", "same everywhere!", domain.RoleViewer)
	env.createAccount(t, globex.ID, "multi@example.com", "same everywhere!", domain.RoleOwner)

	t.Run("single match mints a session", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/auth/login",
			`{"email":"solo@example.com","password":"only one place!"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp globalLoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Session)
		require.Equal(t, "acme", resp.Session.OrganizationSlug)
		require.NotEmpty(t, sessionCookie(t, rec))
	})

	t.Run("ambiguous match lists organizations and mints nothing", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/auth/login",
			`{"email":"multi@example.com","password":"same everywhere!"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp globalLoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Nil(t, resp.Session)
		require.Len(t, resp.Organizations, 2)

		for _, c := range rec.Result().Cookies() {
			require.NotEqual(t, SessionCookieName, c.Name)
		}
	})

	t.Run("invalid credentials collapse to 401", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/auth/login",
			`{"email":"solo@example.com","password":"nope"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrganization(t, "acme")
	env.createAccount(t, org.ID, "alice@example.com", "correct horse battery", domain.RoleAdmin)

	token := env.login(t, "acme", "alice@example.com", "correct horse battery")

	t.Run("session works before logout", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/orgs/acme/auth/session", "", withCookie(token))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("logout revokes and clears the cookie", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/logout", "", withCookie(token))
		require.Equal(t, http.StatusNoContent, rec.Code)

		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == SessionCookieName {
				cleared = true
				require.Negative(t, c.MaxAge)
			}
		}
		require.True(t, cleared)
	})

	t.Run("revoked token no longer authenticates", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/orgs/acme/auth/session", "", withCookie(token))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout without a token still succeeds", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/orgs/acme/auth/logout", "")
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}
