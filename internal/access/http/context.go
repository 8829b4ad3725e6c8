package http

import (
	"context"

	"github.com/hiredeck/hiredeck/internal/access/domain"
)

type ctxKey int

const (
	organizationKey ctxKey = iota
	identityKey
)

// Identity is the verified caller attached to the request context by the
// session guard.
type Identity struct {
	AccountID        string
	SessionID        string
	OrganizationID   string
	OrganizationSlug string
	Email            string
	Role             domain.Role

	// Token is the raw session token the identity was derived from, kept so
	// logout can revoke exactly the presented session.
	Token string
}

func withOrganization(ctx context.Context, org domain.Organization) context.Context {
	return context.WithValue(ctx, organizationKey, org)
}

// OrganizationFromContext returns the tenant resolved from the request path.
func OrganizationFromContext(ctx context.Context) (domain.Organization, bool) {
	org, ok := ctx.Value(organizationKey).(domain.Organization)
	return org, ok
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the verified caller, when the route is behind
// the session guard.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
