// Package dbx holds the small database plumbing shared by the card and
// session repositories: DBTX, the query surface satisfied by both *sql.DB
// and *sql.Tx, and WithTx for work that must commit or roll back as a unit.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the execution surface repositories are built over. Constructing a
// repository over a *sql.Tx runs the same queries inside that transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit when fn returns nil, rollback
// when it returns an error or panics. Panics are rethrown after the
// rollback. Callers usually scope a repository to the transactional handle:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return m.Cards(tx).MarkPaid(ctx, userID, id, last, next)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
