package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hiredeck/hiredeck/internal/access/domain"
	"github.com/hiredeck/hiredeck/internal/access/store"
	"github.com/hiredeck/hiredeck/internal/access/store/drivers/sqlite"
	"github.com/hiredeck/hiredeck/pkg/cryptox"
	"github.com/hiredeck/hiredeck/pkg/idx"
)

func newTestInviteService(t *testing.T, st *sqlite.Store) *InviteService {
	t.Helper()
	return &InviteService{
		Store:    st,
		Sessions: newTestSessionService(t, st),
	}
}

func TestInviteIssue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	org := newTestOrganization(t, st, "acme")
	svc := newTestInviteService(t, st)

	t.Run("issues a fingerprinted invite", func(t *testing.T) {
		token, invite, err := svc.Issue(ctx, org.ID, "New.Hire@Example.com", domain.RoleViewer, 0, "admin-1")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		require.Equal(t, "new.hire@example.com", invite.Email)
		require.Equal(t, cryptox.FingerprintToken(token), invite.TokenHash)
		require.NotEqual(t, token, invite.TokenHash)
		require.WithinDuration(t, time.Now().Add(DefaultInviteTTL), invite.ExpiresAt, time.Minute)

		stored, err := st.Invites().GetInviteByTokenHash(ctx, invite.TokenHash)
		require.NoError(t, err)
		require.Equal(t, invite.ID, stored.ID)
		require.Nil(t, stored.AcceptedAt)
	})

	t.Run("honors an explicit ttl", func(t *testing.T) {
		_, invite, err := svc.Issue(ctx, org.ID, "short@example.com", domain.RoleViewer, time.Hour, "admin-1")
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(time.Hour), invite.ExpiresAt, time.Minute)
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		_, _, err := svc.Issue(ctx, org.ID, "x@example.com", domain.Role("superuser"), 0, "admin-1")
		require.ErrorIs(t, err, ErrInvalidInviteRequest)
	})

	t.Run("rejects an empty email", func(t *testing.T) {
		_, _, err := svc.Issue(ctx, org.ID, "   ", domain.RoleViewer, 0, "admin-1")
		require.ErrorIs(t, err, ErrInvalidInviteRequest)
	})

	t.Run("rejects an unknown organization", func(t *testing.T) {
		_, _, err := svc.Issue(ctx, idx.New().String(), "x@example.com", domain.RoleViewer, 0, "admin-1")
		require.ErrorIs(t, err, ErrInvalidInviteRequest)
	})
}

func TestInvitePeek(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	org := newTestOrganization(t, st, "acme")
	svc := newTestInviteService(t, st)

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.Peek(ctx, "no-such-token")
		require.ErrorIs(t, err, ErrInviteNotFound)
	})

	t.Run("valid invite", func(t *testing.T) {
		token, invite, err := svc.Issue(ctx, org.ID, "a@example.com", domain.RoleViewer, time.Hour, "admin-1")
		require.NoError(t, err)

		got, err := svc.Peek(ctx, token)
		require.NoError(t, err)
		require.Equal(t, invite.ID, got.ID)
	})

	t.Run("peek never consumes", func(t *testing.T) {
		token, _, err := svc.Issue(ctx, org.ID, "b@example.com", domain.RoleViewer, time.Hour, "admin-1")
		require.NoError(t, err)

		for range 3 {
			_, err := svc.Peek(ctx, token)
			require.NoError(t, err)
		}
	})

	t.Run("expired invite, boundary inclusive", func(t *testing.T) {
		token := "expired-invite-token"
		require.NoError(t, st.Invites().CreateInvite(ctx, domain.Invite{
			ID:             idx.New().String(),
			OrganizationID: org.ID,
			Email:          "c@example.com",
			TokenHash:      cryptox.FingerprintToken(token),
			Role:           domain.RoleViewer,
			CreatedBy:      "admin-1",
			ExpiresAt:      time.Now().UTC(),
		}))

		_, err := svc.Peek(ctx, token)
		require.ErrorIs(t, err, ErrInviteExpired)
	})

	t.Run("expiry wins over acceptance", func(t *testing.T) {
		token := "accepted-then-expired"
		accepted := time.Now().UTC().Add(-2 * time.Hour)
		require.NoError(t, st.Invites().CreateInvite(ctx, domain.Invite{
			ID:             idx.New().String(),
			OrganizationID: org.ID,
			Email:          "d@example.com",
			TokenHash:      cryptox.FingerprintToken(token),
			Role:           domain.RoleViewer,
			CreatedBy:      "admin-1",
			ExpiresAt:      time.Now().UTC().Add(-time.Hour),
			AcceptedAt:     &accepted,
		}))

		_, err := svc.Peek(ctx, token)
		require.ErrorIs(t, err, ErrInviteExpired)
	})
}

func TestInviteAccept(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	org := newTestOrganization(t, st, "acme")
	svc := newTestInviteService(t, st)

	t.Run("provisions the account and issues a session", func(t *testing.T) {
		token, invite, err := svc.Issue(ctx, org.ID, "hire@example.com", domain.RoleAdmin, time.Hour, "admin-1")
		require.NoError(t, err)

		account, sessionToken, claims, err := svc.Accept(ctx, token, "a strong password", SessionMeta{ClientIP: "203.0.113.9"})
		require.NoError(t, err)
		require.Equal(t, "hire@example.com", account.Email)
		require.Equal(t, domain.RoleAdmin, account.Role)
		require.Equal(t, org.ID, account.OrganizationID)
		require.NotEmpty(t, sessionToken)
		require.Equal(t, account.ID, claims.Subject)
		require.Equal(t, org.ID, claims.OrganizationID)

		// The invite is consumed and the new credentials work.
		stored, err := st.Invites().GetInviteByTokenHash(ctx, invite.TokenHash)
		require.NoError(t, err)
		require.NotNil(t, stored.AcceptedAt)

		creds := &CredentialService{Store: st}
		got, err := creds.Verify(ctx, org.ID, "hire@example.com", "a strong password")
		require.NoError(t, err)
		require.Equal(t, account.ID, got.ID)
	})

	t.Run("second accept loses", func(t *testing.T) {
		token, _, err := svc.Issue(ctx, org.ID, "again@example.com", domain.RoleViewer, time.Hour, "admin-1")
		require.NoError(t, err)

		_, _, _, err = svc.Accept(ctx, token, "first password!", SessionMeta{})
		require.NoError(t, err)

		_, _, _, err = svc.Accept(ctx, token, "second password!", SessionMeta{})
		require.ErrorIs(t, err, ErrInviteAccepted)

		// The loser must not have touched the account.
		creds := &CredentialService{Store: st}
		_, err = creds.Verify(ctx, org.ID, "again@example.com", "first password!")
		require.NoError(t, err)
		_, err = creds.Verify(ctx, org.ID, "again@example.com", "second password!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("short password rejected before any state changes", func(t *testing.T) {
		token, invite, err := svc.Issue(ctx, org.ID, "strict@example.com", domain.RoleViewer, time.Hour, "admin-1")
		require.NoError(t, err)

		_, _, _, err = svc.Accept(ctx, token, "short", SessionMeta{})
		require.ErrorIs(t, err, ErrPasswordTooShort)

		stored, err := st.Invites().GetInviteByTokenHash(ctx, invite.TokenHash)
		require.NoError(t, err)
		require.Nil(t, stored.AcceptedAt, "failed accept must not consume the invite")

		_, err = st.Accounts().GetAccountByEmail(ctx, org.ID, "strict@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expired invite rejected", func(t *testing.T) {
		token := "stale-invite"
		require.NoError(t, st.Invites().CreateInvite(ctx, domain.Invite{
			ID:             idx.New().String(),
			OrganizationID: org.ID,
			Email:          "stale@example.com",
			TokenHash:      cryptox.FingerprintToken(token),
			Role:           domain.RoleViewer,
			CreatedBy:      "admin-1",
			ExpiresAt:      time.Now().UTC().Add(-time.Minute),
		}))

		_, _, _, err := svc.Accept(ctx, token, "a strong password", SessionMeta{})
		require.ErrorIs(t, err, ErrInviteExpired)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		_, _, _, err := svc.Accept(ctx, "never-issued", "a strong password", SessionMeta{})
		require.ErrorIs(t, err, ErrInviteNotFound)
	})

	t.Run("re-invite of an existing account keeps its id", func(t *testing.T) {
		existing := newTestAccount(t, st, org.ID, "rehire@example.com", "old password!", domain.RoleViewer)

		token, _, err := svc.Issue(ctx, org.ID, "rehire@example.com", domain.RoleAdmin, time.Hour, "admin-1")
		require.NoError(t, err)

		account, _, _, err := svc.Accept(ctx, token, "new password!!", SessionMeta{})
		require.NoError(t, err)
		require.Equal(t, existing.ID, account.ID)
		require.Equal(t, domain.RoleAdmin, account.Role)

		creds := &CredentialService{Store: st}
		_, err = creds.Verify(ctx, org.ID, "rehire@example.com", "new password!!")
		require.NoError(t, err)
		_, err = creds.Verify(ctx, org.ID, "rehire@example.com", "old password!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestInviteAcceptConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	org := newTestOrganization(t, st, "acme")
	svc := newTestInviteService(t, st)

	token, _, err := svc.Issue(ctx, org.ID, "race@example.com", domain.RoleViewer, time.Hour, "admin-1")
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, errs[i] = svc.Accept(ctx, token, "a strong password", SessionMeta{})
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, ErrInviteAccepted)
		}
	}
	require.Equal(t, 1, winners, "exactly one concurrent accept may win")
}
