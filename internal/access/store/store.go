package store

import (
	"context"
	"errors"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories to keep concerns tidy and testable.
type Store interface {
	Organizations() Organizations
	Accounts() Accounts
	Sessions() Sessions
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store. The
	// caller MUST Commit or Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn errors
	// and committing otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store with Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Organizations interface {
	// GetOrganizationByID returns an organization by id.
	GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error)

	// GetOrganizationBySlug resolves the tenant for a request path.
	GetOrganizationBySlug(ctx context.Context, slug string) (domain.Organization, error)

	// CreateOrganization inserts a new tenant (platform-operator surface).
	CreateOrganization(ctx context.Context, org domain.Organization) error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail looks up (organization_id, email_normalized).
	GetAccountByEmail(ctx context.Context, orgID, emailNormalized string) (domain.Account, error)

	// ListAccountsByEmail returns all accounts across organizations sharing
	// a normalized email, for the global login surface.
	ListAccountsByEmail(ctx context.Context, emailNormalized string) ([]domain.Account, error)

	// CreateAccount inserts a new account (id is a ULID provided by the app).
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpsertAccountByEmail inserts a for (organization_id, email_normalized)
	// or, when that pair exists, updates its password hash and role. Returns
	// the stored account, keeping the existing id on conflict.
	UpsertAccountByEmail(ctx context.Context, a domain.Account) (domain.Account, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error

	// UpdateRole changes the account's role within its organization.
	UpdateRole(ctx context.Context, accountID string, role domain.Role) error

	// TouchLastLogin stamps last_login_at; best-effort on the login path.
	TouchLastLogin(ctx context.Context, accountID string, at time.Time) error
}

type Sessions interface {
	// CreateSession persists the audit/revocation record for an issued token.
	CreateSession(ctx context.Context, s domain.SessionRecord) error

	// GetSessionByTokenHash returns the record by token fingerprint.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.SessionRecord, error)

	// RevokeSession flips revoked for the given fingerprint.
	RevokeSession(ctx context.Context, hash string) error

	// RevokeAllAccountSessions bulk-revokes an account's sessions
	// (administrative kill, password reset).
	RevokeAllAccountSessions(ctx context.Context, accountID string) error

	// DeleteExpiredSessions prunes records past expires_at. Housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

type Invites interface {
	// CreateInvite writes a new invite (token_hash is the SHA-256 of the raw
	// invite token).
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByTokenHash returns the invite regardless of state; callers
	// derive accepted/expired.
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// MarkInviteAccepted sets accepted_at only when it is still null,
	// reporting whether this call won. The single-winner guarantee for
	// concurrent accepts rests on this conditional update.
	MarkInviteAccepted(ctx context.Context, inviteID string, at time.Time) (bool, error)

	// DeleteExpiredInvites prunes invites past expires_at. Housekeeping.
	DeleteExpiredInvites(ctx context.Context, now time.Time) error
}
