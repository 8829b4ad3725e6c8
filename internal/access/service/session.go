package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
	"github.com/hiredeck/hiredeck/internal/access/store"
	"github.com/hiredeck/hiredeck/pkg/cryptox"
	"github.com/hiredeck/hiredeck/pkg/idx"
	"github.com/hiredeck/hiredeck/pkg/jwtx"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

// ErrInvalidSession is the single rejection for every verification failure:
// bad signature, expiry, revocation and missing record all look the same to
// the caller.
var ErrInvalidSession = errors.New("invalid session")

// SessionMeta captures request attributes recorded on the session record for
// audit purposes.
type SessionMeta struct {
	ClientIP  string
	UserAgent string
}

// SessionService mints signed session tokens and persists their revocable
// shadow records.
type SessionService struct {
	Store    store.Store
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string

	SessionTTL    time.Duration // default lifetime
	RememberMeTTL time.Duration // extended lifetime when rememberMe is set
}

// Issue signs a session token for account within org and persists the
// matching SessionRecord keyed by the token's fingerprint. The raw token is
// returned to the caller and never stored.
func (s *SessionService) Issue(
	ctx context.Context,
	account domain.Account,
	org domain.Organization,
	rememberMe bool,
	meta SessionMeta,
) (string, jwtx.Claims, error) {
	log := slogx.FromContext(ctx)

	// The token's tenant claim must equal the account's organization at
	// issuance; a caller mixing the two up would mint a cross-tenant token.
	if account.OrganizationID != org.ID {
		return "", jwtx.Claims{}, fmt.Errorf(
			"session: account organization %q does not match %q",
			account.OrganizationID, org.ID,
		)
	}

	ttl := s.SessionTTL
	if rememberMe {
		ttl = s.RememberMeTTL
	}

	now := time.Now().UTC()
	claims := jwtx.NewSessionClaims(
		account.ID, org.ID, org.Slug, account.Email, string(account.Role),
		ttl, s.Issuer, now,
	)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign session token", slog.Any("error", err))
		return "", jwtx.Claims{}, err
	}

	record := domain.SessionRecord{
		ID:             idx.New().String(),
		AccountID:      account.ID,
		OrganizationID: org.ID,
		TokenHash:      cryptox.FingerprintToken(token),
		ClientIP:       meta.ClientIP,
		UserAgent:      meta.UserAgent,
		ExpiresAt:      claims.ExpiresAtTime(),
	}
	if err := s.Store.Sessions().CreateSession(ctx, record); err != nil {
		log.Error("failed to persist session record",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
		return "", jwtx.Claims{}, err
	}

	log.Debug("session issued",
		slog.String("account_id", account.ID),
		slog.String("organization_id", org.ID),
		slog.Bool("remember_me", rememberMe),
		slog.Time("expires_at", record.ExpiresAt),
	)
	return token, claims, nil
}

// Verify is the pure check: signature then expiry, no I/O. A signed,
// unexpired token is self-certifying.
func (s *SessionService) Verify(token string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return jwtx.Claims{}, ErrInvalidSession
	}
	return claims, nil
}

// VerifyWithRevocation runs the pure check and then consults the session
// record by token fingerprint. A missing or revoked record rejects an
// otherwise valid token, and a store failure denies rather than allows.
func (s *SessionService) VerifyWithRevocation(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return jwtx.Claims{}, err
	}

	record, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Error("session record lookup failed, denying",
				slog.Any("error", err),
			)
		}
		return jwtx.Claims{}, ErrInvalidSession
	}
	if record.Revoked {
		return jwtx.Claims{}, ErrInvalidSession
	}

	return claims, nil
}

// Revoke marks the token's session record revoked (logout). Revoking a token
// with no record is a no-op so logout stays idempotent.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	err := s.Store.Sessions().RevokeSession(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// RevokeAllForAccount kills every session of an account (administrative
// lockout, password reset).
func (s *SessionService) RevokeAllForAccount(ctx context.Context, accountID string) error {
	return s.Store.Sessions().RevokeAllAccountSessions(ctx, accountID)
}
