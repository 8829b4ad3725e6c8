package sqlite

import (
	"context"
	"time"

	"github.com/hiredeck/hiredeck/internal/access/domain"
)

type sessionsRepo struct {
	db querier
}

const sessionColumns = `id, account_id, organization_id, token_hash,
	client_ip, user_agent, revoked, created_at, expires_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.SessionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_records (id, account_id, organization_id,
		   token_hash, client_ip, user_agent, revoked, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		s.ID, s.AccountID, s.OrganizationID, s.TokenHash,
		s.ClientIP, s.UserAgent, time.Now().UTC(), s.ExpiresAt.UTC())
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (domain.SessionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM session_records WHERE token_hash = ?`, hash)

	var s domain.SessionRecord
	err := row.Scan(&s.ID, &s.AccountID, &s.OrganizationID, &s.TokenHash,
		&s.ClientIP, &s.UserAgent, &s.Revoked, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return domain.SessionRecord{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_records SET revoked = 1 WHERE token_hash = ?`, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RevokeAllAccountSessions(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE session_records SET revoked = 1 WHERE account_id = ?`, accountID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_records WHERE expires_at <= ?`, now.UTC())
	return err
}
