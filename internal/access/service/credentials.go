package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
	"github.com/hiredeck/hiredeck/internal/access/store"
	"github.com/hiredeck/hiredeck/pkg/cryptox"
	"github.com/hiredeck/hiredeck/pkg/slogx"
)

// ErrInvalidCredentials covers both unknown email and wrong password. The two
// cases must be indistinguishable to the caller, or the login surface becomes
// an account-enumeration oracle.
var ErrInvalidCredentials = errors.New("invalid credentials")

// touchTimeout bounds the best-effort last-login stamp so it can never hold
// up or outlive the login response for long.
const touchTimeout = 5 * time.Second

// CredentialService checks email/password pairs against tenant-scoped
// accounts.
type CredentialService struct {
	Store store.Store
}

// Verify checks the password for the account registered under
// (organizationID, normalized email). On success it returns the account and
// stamps last_login_at in the background.
func (s *CredentialService) Verify(ctx context.Context, organizationID, email, password string) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, organizationID, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison anyway so the unknown-email path costs
			// the same as a wrong password.
			_ = cryptox.VerifyPassword(password, decoyHash)
			return domain.Account{}, ErrInvalidCredentials
		}
		log.Error("failed to look up account", slog.Any("error", err))
		return domain.Account{}, err
	}

	if err := cryptox.VerifyPassword(password, account.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.Account{}, ErrInvalidCredentials
		}
		log.Error("password hash verification failed", slog.Any("error", err))
		return domain.Account{}, ErrInvalidCredentials
	}

	s.touchLastLogin(account.ID)
	return account, nil
}

// GlobalLogin is the outcome of the cross-organization login surface. When
// the email+password pair matches exactly one account, Account and
// Organization are set. When the same credentials are valid in several
// organizations, Candidates lists them and the caller must disambiguate.
type GlobalLogin struct {
	Account      domain.Account
	Organization domain.Organization
	Candidates   []domain.Organization
}

// Ambiguous reports whether the caller must pick an organization.
func (g GlobalLogin) Ambiguous() bool { return len(g.Candidates) > 0 }

// VerifyAcrossOrganizations checks the credentials against every account
// registered under the email, in any organization. Zero matches collapse to
// ErrInvalidCredentials like the tenant-scoped path.
func (s *CredentialService) VerifyAcrossOrganizations(ctx context.Context, email, password string) (GlobalLogin, error) {
	log := slogx.FromContext(ctx)

	accounts, err := s.Store.Accounts().ListAccountsByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		log.Error("failed to list accounts by email", slog.Any("error", err))
		return GlobalLogin{}, err
	}

	// Each organization's account has its own hash; the password must be
	// checked per candidate.
	var matched []domain.Account
	for _, a := range accounts {
		if cryptox.VerifyPassword(password, a.PasswordHash) == nil {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		_ = cryptox.VerifyPassword(password, decoyHash)
		return GlobalLogin{}, ErrInvalidCredentials
	}

	if len(matched) == 1 {
		org, err := s.Store.Organizations().GetOrganizationByID(ctx, matched[0].OrganizationID)
		if err != nil {
			log.Error("failed to resolve organization for matched account",
				slog.String("organization_id", matched[0].OrganizationID),
				slog.Any("error", err),
			)
			return GlobalLogin{}, err
		}
		s.touchLastLogin(matched[0].ID)
		return GlobalLogin{Account: matched[0], Organization: org}, nil
	}

	candidates := make([]domain.Organization, 0, len(matched))
	for _, a := range matched {
		org, err := s.Store.Organizations().GetOrganizationByID(ctx, a.OrganizationID)
		if err != nil {
			log.Error("failed to resolve candidate organization",
				slog.String("organization_id", a.OrganizationID),
				slog.Any("error", err),
			)
			return GlobalLogin{}, err
		}
		candidates = append(candidates, org)
	}
	return GlobalLogin{Candidates: candidates}, nil
}

// touchLastLogin stamps last_login_at without blocking the response. A
// failure only loses an audit timestamp, so it is logged and dropped.
func (s *CredentialService) touchLastLogin(accountID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()

		if err := s.Store.Accounts().TouchLastLogin(ctx, accountID, time.Now().UTC()); err != nil {
			slog.Default().Warn("failed to stamp last login",
				slog.String("account_id", accountID),
				slog.Any("error", err),
			)
		}
	}()
}

// decoyHash is a syntactically valid Argon2id hash of random data, used only
// to equalize timing on the unknown-email path.
const decoyHash = "$argon2id$v=19$m=19456,t=2,p=1$V2VkTm90QVNhbHRWYWx1ZQ$v1pkKmRkk6vZ3BRLGJSH0Gz72pFvTzN2NOQyLCrTjJk"
