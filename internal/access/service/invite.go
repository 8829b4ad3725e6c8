package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
	"github.com/hiredeck/hiredeck/internal/access/store"
	"github.com/hiredeck/hiredeck/pkg/cryptox"
	"github.com/hiredeck/hiredeck/pkg/idx"
	"github.com/hiredeck/hiredeck/pkg/jwtx"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

const (
	// MinPasswordLength is the floor for passwords set through invite accept.
	MinPasswordLength = 8

	// DefaultInviteTTL applies when the issuer does not pick a lifetime.
	DefaultInviteTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidInviteRequest = errors.New("invalid invite request")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrInviteAccepted       = errors.New("invite has already been accepted")
	ErrInviteExpired        = errors.New("invite has expired")
	ErrPasswordTooShort     = errors.New("password does not meet the minimum length")
)

// InviteService runs the invite token lifecycle: Created, then exactly one of
// Accepted (stored, at most once) or Expired (derived at read time).
type InviteService struct {
	Store    store.Store
	Sessions *SessionService
}

// Issue mints an unguessable single-use invite for email in the organization.
// The raw token is returned exactly once; only its fingerprint is stored.
func (s *InviteService) Issue(
	ctx context.Context,
	organizationID, email string,
	role domain.Role,
	ttl time.Duration,
	createdBy string,
) (string, domain.Invite, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" || organizationID == "" {
		return "", domain.Invite{}, ErrInvalidInviteRequest
	}
	if !role.Valid() {
		return "", domain.Invite{}, ErrInvalidInviteRequest
	}
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}

	if _, err := s.Store.Organizations().GetOrganizationByID(ctx, organizationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.Invite{}, ErrInvalidInviteRequest
		}
		log.Error("failed to fetch organization", slog.Any("error", err))
		return "", domain.Invite{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return "", domain.Invite{}, err
	}

	invite := domain.Invite{
		ID:             idx.New().String(),
		OrganizationID: organizationID,
		Email:          email,
		TokenHash:      cryptox.FingerprintToken(token),
		Role:           role,
		CreatedBy:      createdBy,
		ExpiresAt:      time.Now().UTC().Add(ttl),
	}
	if err := s.Store.Invites().CreateInvite(ctx, invite); err != nil {
		log.Error("failed to create invite",
			slog.String("invite_id", invite.ID),
			slog.Any("error", err),
		)
		return "", domain.Invite{}, err
	}

	log.Info("invite issued",
		slog.String("invite_id", invite.ID),
		slog.String("organization_id", organizationID),
		slog.String("role", string(role)),
		slog.Time("expires_at", invite.ExpiresAt),
	)
	return token, invite, nil
}

// Peek is the read-only validity check. It never mutates state, so a UI can
// call it repeatedly to pre-fill the accept form.
func (s *InviteService) Peek(ctx context.Context, token string) (domain.Invite, error) {
	invite, err := s.Store.Invites().GetInviteByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrInviteNotFound
		}
		slogx.FromContext(ctx).Error("failed to fetch invite", slog.Any("error", err))
		return domain.Invite{}, err
	}
	return invite, validateInvite(invite, time.Now().UTC())
}

// validateInvite derives the invite's state at now. Expiry wins over
// acceptance: past expires_at the invite reads as expired no matter what.
func validateInvite(invite domain.Invite, now time.Time) error {
	if invite.Expired(now) {
		return ErrInviteExpired
	}
	if invite.Accepted() {
		return ErrInviteAccepted
	}
	return nil
}

// Accept consumes the invite: it provisions (or refreshes) the account for
// (organization, email) with the new password and invited role, marks the
// invite accepted, and auto-issues a session for the account.
//
// The accepted marker and the account upsert commit in one transaction, and
// the marker is a conditional update on accepted_at IS NULL, so at most one
// of any concurrent Accept calls for the same token can succeed.
func (s *InviteService) Accept(
	ctx context.Context,
	token, password string,
	meta SessionMeta,
) (domain.Account, string, jwtx.Claims, error) {
	log := slogx.FromContext(ctx)

	// Password policy is checked before anything touches the store.
	if len(password) < MinPasswordLength {
		return domain.Account{}, "", jwtx.Claims{}, ErrPasswordTooShort
	}

	invite, err := s.Peek(ctx, token)
	if err != nil {
		return domain.Account{}, "", jwtx.Claims{}, err
	}

	// Hashing is deliberately expensive; do it outside the transaction.
	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.Account{}, "", jwtx.Claims{}, err
	}

	now := time.Now().UTC()
	var account domain.Account
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Re-read inside the transaction; the state may have moved since Peek.
		current, err := tx.Invites().GetInviteByTokenHash(ctx, invite.TokenHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInviteNotFound
			}
			return err
		}
		if err := validateInvite(current, now); err != nil {
			return err
		}

		won, err := tx.Invites().MarkInviteAccepted(ctx, current.ID, now)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent Accept got here first.
			return ErrInviteAccepted
		}

		account, err = tx.Accounts().UpsertAccountByEmail(ctx, domain.Account{
			ID:              idx.New().String(),
			OrganizationID:  current.OrganizationID,
			Email:           current.Email,
			EmailNormalized: domain.NormalizeEmail(current.Email),
			PasswordHash:    passwordHash,
			Role:            current.Role,
		})
		return err
	})
	if err != nil {
		if !isInviteStateError(err) {
			log.Error("invite accept transaction failed",
				slog.String("invite_id", invite.ID),
				slog.Any("error", err),
			)
		}
		return domain.Account{}, "", jwtx.Claims{}, err
	}

	org, err := s.Store.Organizations().GetOrganizationByID(ctx, account.OrganizationID)
	if err != nil {
		log.Error("failed to resolve organization after invite accept", slog.Any("error", err))
		return domain.Account{}, "", jwtx.Claims{}, err
	}

	// The invite is consumed and the account is usable from here on; a
	// session failure surfaces as an error but never unwinds the accept.
	sessionToken, claims, err := s.Sessions.Issue(ctx, account, org, false, meta)
	if err != nil {
		return domain.Account{}, "", jwtx.Claims{}, err
	}

	log.Info("invite accepted",
		slog.String("invite_id", invite.ID),
		slog.String("account_id", account.ID),
		slog.String("organization_id", account.OrganizationID),
	)
	return account, sessionToken, claims, nil
}

func isInviteStateError(err error) bool {
	return errors.Is(err, ErrInviteNotFound) ||
		errors.Is(err, ErrInviteAccepted) ||
		errors.Is(err, ErrInviteExpired)
}
