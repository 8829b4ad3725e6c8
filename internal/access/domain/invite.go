package domain

import "time"

// Invite is a single-use, time-boxed token that provisions a new account in
// an organization. TokenHash stores the SHA-256 fingerprint of the raw token.
// AcceptedAt is set exactly once, under an atomic check-and-set; expiry is
// derived at read time, never stored as a transition.
type Invite struct {
	ID             string
	OrganizationID string
	Email          string
	TokenHash      string
	Role           Role
	CreatedBy      string
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Accepted reports whether the invite has already been consumed.
func (i Invite) Accepted() bool { return i.AcceptedAt != nil }

// Expired reports whether the invite is past its lifetime at now. The
// boundary is inclusive: an invite read exactly at ExpiresAt is expired
// regardless of acceptance state.
func (i Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
