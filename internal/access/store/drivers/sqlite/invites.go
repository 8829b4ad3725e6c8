package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
)

type invitesRepo struct {
	db querier
}

const inviteColumns = `id, organization_id, email, token_hash, role,
	created_by, expires_at, accepted_at, created_at, updated_at`

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invite_tokens (id, organization_id, email, token_hash,
		   role, created_by, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OrganizationID, inv.Email, inv.TokenHash,
		string(inv.Role), inv.CreatedBy, inv.ExpiresAt.UTC(), now, now)
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invite_tokens WHERE token_hash = ?`, hash)

	var inv domain.Invite
	var role string
	var acceptedAt sql.NullTime
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.Email, &inv.TokenHash,
		&role, &inv.CreatedBy, &inv.ExpiresAt, &acceptedAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	inv.Role = domain.Role(role)
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return inv, nil
}

// MarkInviteAccepted is the check-and-set behind the single-winner guarantee:
// the WHERE clause only matches while accepted_at is still null, so exactly
// one concurrent accept observes an affected row.
func (r *invitesRepo) MarkInviteAccepted(ctx context.Context, inviteID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invite_tokens SET accepted_at = ?, updated_at = ?
		 WHERE id = ? AND accepted_at IS NULL`,
		at.UTC(), at.UTC(), inviteID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM invite_tokens WHERE expires_at <= ?`, now.UTC())
	return err
}
