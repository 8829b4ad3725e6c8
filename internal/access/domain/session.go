package domain

import "time"

// SessionRecord is the persisted audit/revocation side of an issued session
// token. TokenHash is the SHA-256 fingerprint of the raw token, never the
// token itself. Primary authorization is the token's own signature and
// claims; this record exists so logout and administrative kills can outlive
// a still-signed token.
type SessionRecord struct {
	ID             string
	AccountID      string
	OrganizationID string
	TokenHash      string
	ClientIP       string
	UserAgent      string
	Revoked        bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the record's lifetime has elapsed at now.
func (s SessionRecord) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
