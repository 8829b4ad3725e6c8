package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hiredeck/hiredeck/internal/access/store"
)

// sqlTx scopes the repositories to one transaction.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Organizations() store.Organizations { return &organizationsRepo{db: t.tx} }
func (t *sqlTx) Accounts() store.Accounts           { return &accountsRepo{db: t.tx} }
func (t *sqlTx) Sessions() store.Sessions           { return &sessionsRepo{db: t.tx} }
func (t *sqlTx) Invites() store.Invites             { return &invitesRepo{db: t.tx} }

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

// Nested transactions are a programming error; fail loudly instead of
// silently sharing the outer transaction.
func (t *sqlTx) Tx(context.Context) (store.Tx, error) {
	return nil, errors.New("sqlite: nested transactions are not supported")
}

func (t *sqlTx) WithTx(context.Context, func(tx store.Tx) error) error {
	return errors.New("sqlite: nested transactions are not supported")
}

func (t *sqlTx) ApplyMigrations() error {
	return errors.New("sqlite: migrations cannot run inside a transaction")
}

func (t *sqlTx) Close() error { return nil }

func (t *sqlTx) Ping(context.Context) error { return nil }
