package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hiredeck/hiredeck/internal/access/domain"
)

func TestVerifyCredentials(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	org := newTestOrganization(t, st, "acme")
	account := newTestAccount(t, st, org.ID, "Alice@Example.com", "correct horse battery", domain.RoleAdmin)

	svc := &CredentialService{Store: st}

	t.Run("valid credentials", func(t *testing.T) {
		got, err := svc.Verify(ctx, org.ID, "alice@example.com", "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, account.ID, got.ID)
		require.Equal(t, domain.RoleAdmin, got.Role)
	})

	t.Run("email lookup is case and whitespace insensitive", func(t *testing.T) {
		got, err := svc.Verify(ctx, org.ID, "  ALICE@example.COM ", "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, account.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Verify(ctx, org.ID, "alice@example.com", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Verify(ctx, org.ID, "nobody@example.com", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, unknownErr := svc.Verify(ctx, org.ID, "nobody@example.com", "whatever")
		_, wrongErr := svc.Verify(ctx, org.ID, "alice@example.com", "whatever")
		require.Equal(t, unknownErr, wrongErr)
	})

	t.Run("account in another organization does not match", func(t *testing.T) {
		other := newTestOrganization(t, st, "globex")
		_, err := svc.Verify(ctx, other.ID, "alice@example.com", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestVerifyAcrossOrganizations(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	acme := newTestOrganization(t, st, "acme")
	globex := newTestOrganization(t, st, "globex")
	initech := newTestOrganization(t, st, "initech")

	// Same email in three organizations, two sharing a password.
	newTestAccount(t, st, acme.ID, "bob@example.com", "shared password", domain.RoleViewer)
	newTestAccount(t, st, globex.ID, "bob@example.com", "shared password", domain.RoleOwner)
	solo := newTestAccount(t, st, initech.ID, "bob@example.com", "different password", domain.RoleAdmin)

	svc := &CredentialService{Store: st}

	t.Run("single match resolves the organization", func(t *testing.T) {
		got, err := svc.VerifyAcrossOrganizations(ctx, "bob@example.com", "different password")
		require.NoError(t, err)
		require.False(t, got.Ambiguous())
		require.Equal(t, solo.ID, got.Account.ID)
		require.Equal(t, initech.ID, got.Organization.ID)
	})

	t.Run("multiple matches demand disambiguation", func(t *testing.T) {
		got, err := svc.VerifyAcrossOrganizations(ctx, "bob@example.com", "shared password")
		require.NoError(t, err)
		require.True(t, got.Ambiguous())
		require.Len(t, got.Candidates, 2)

		slugs := []string{got.Candidates[0].Slug, got.Candidates[1].Slug}
		require.ElementsMatch(t, []string{"acme", "globex"}, slugs)
	})

	t.Run("no password match anywhere", func(t *testing.T) {
		_, err := svc.VerifyAcrossOrganizations(ctx, "bob@example.com", "not it")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.VerifyAcrossOrganizations(ctx, "ghost@example.com", "anything")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
