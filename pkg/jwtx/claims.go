// Package jwtx mints and verifies the signed session tokens used as bearer
// credentials. Tokens are compact JWS (header.payload.signature) signed with
// a symmetric HMAC-SHA256 secret, so they are self-certifying: verification
// needs no store access.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default session lifetimes.
const (
	// DefaultSessionTTL is the lifetime of an ordinary session token.
	DefaultSessionTTL = 8 * time.Hour

	// RememberMeTTL is the extended lifetime when the caller opts in to a
	// long-lived session.
	RememberMeTTL = 30 * 24 * time.Hour
)

// Claims are the session-token claims. The subject is the account ID; the
// organization fields pin the token to exactly one tenant and are what the
// isolation guard compares against the resolved request tenant.
type Claims struct {
	jwt.RegisteredClaims

	// SID identifies the persisted session record backing this token.
	SID string `json:"sid"`

	// OrganizationID is the tenant the token was issued within. A token is
	// never valid for any other tenant.
	OrganizationID string `json:"org_id"`

	// OrganizationSlug is carried for convenience so downstream handlers can
	// build tenant URLs without a lookup.
	OrganizationSlug string `json:"org_slug,omitempty"`

	// Email of the authenticated account.
	Email string `json:"email,omitempty"`

	// Role of the account within the organization (owner, admin, viewer).
	Role string `json:"role"`
}

// NewSessionClaims builds claims for an account session.
func NewSessionClaims(
	accountID, orgID, orgSlug, email, role string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		SID:              uuid.NewString(),
		OrganizationID:   orgID,
		OrganizationSlug: orgSlug,
		Email:            email,
		Role:             role,
	}
}

// ExpiresAtTime returns the expiry instant, or the zero time when absent.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether the token is expired at the given instant. A token
// whose expiry equals now is already expired.
func (c Claims) Expired(now time.Time) bool {
	exp := c.ExpiresAtTime()
	return exp.IsZero() || !now.Before(exp)
}
