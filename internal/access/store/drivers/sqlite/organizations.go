package sqlite

import (
	"context"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
)

type organizationsRepo struct {
	db querier
}

const organizationColumns = `id, slug, name, created_at, updated_at`

func (r *organizationsRepo) GetOrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, id)
	return scanOrganization(row)
}

func (r *organizationsRepo) GetOrganizationBySlug(ctx context.Context, slug string) (domain.Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE slug = ?`, slug)
	return scanOrganization(row)
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, org domain.Organization) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, slug, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		org.ID, org.Slug, org.Name, now, now)
	return mapConstraint(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (domain.Organization, error) {
	var org domain.Organization
	err := row.Scan(&org.ID, &org.Slug, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return org, nil
}
