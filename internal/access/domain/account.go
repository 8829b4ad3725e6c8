package domain

import (
	"strings"
	"time"
)

// Role is an account's permission level within its organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// rank orders roles for comparisons; higher means more privileged.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants at least the privileges of other.
func (r Role) AtLeast(other Role) bool { return r.rank() >= other.rank() }

// Account is a tenant-scoped admin user. OrganizationID is immutable after
// creation; the same email may exist in multiple organizations as distinct
// accounts, but EmailNormalized is unique within one.
type Account struct {
	ID              string
	OrganizationID  string
	Email           string
	EmailNormalized string
	PasswordHash    string // argon2id PHC encoded
	Role            Role
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeEmail produces the canonical lookup/uniqueness form of an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
