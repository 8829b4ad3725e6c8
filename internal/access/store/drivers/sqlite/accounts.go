package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
)

type accountsRepo struct {
	db querier
}

const accountColumns = `id, organization_id, email, email_normalized,
	password_hash, role, last_login_at, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, orgID, emailNormalized string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE organization_id = ? AND email_normalized = ?`,
		orgID, emailNormalized)
	return scanAccount(row)
}

func (r *accountsRepo) ListAccountsByEmail(ctx context.Context, emailNormalized string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE email_normalized = ? ORDER BY created_at`,
		emailNormalized)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, organization_id, email, email_normalized,
		   password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OrganizationID, a.Email, a.EmailNormalized,
		a.PasswordHash, string(a.Role), now, now)
	return mapConstraint(err)
}

func (r *accountsRepo) UpsertAccountByEmail(ctx context.Context, a domain.Account) (domain.Account, error) {
	now := time.Now().UTC()
	// organization_id is immutable: the conflict target scopes the update to
	// the same organization, and the update never touches it.
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, organization_id, email, email_normalized,
		   password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (organization_id, email_normalized) DO UPDATE SET
		   password_hash = excluded.password_hash,
		   role = excluded.role,
		   updated_at = excluded.updated_at
		 RETURNING `+accountColumns,
		a.ID, a.OrganizationID, a.Email, a.EmailNormalized,
		a.PasswordHash, string(a.Role), now, now)
	return scanAccount(row)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) UpdateRole(ctx context.Context, accountID string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) TouchLastLogin(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_login_at = ? WHERE id = ?`,
		at.UTC(), accountID)
	return err
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	var role string
	var lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Email, &a.EmailNormalized,
		&a.PasswordHash, &role, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.Role = domain.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return a, nil
}
