// Package dbx holds the small database plumbing the repositories share.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is what a repository needs from its database handle. Both *sql.DB and
// *sql.Tx provide it, so the same repository works standalone or inside a
// WithTx transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction and commits when fn returns nil. A
// non-nil error rolls the transaction back; a panic rolls back and is
// rethrown. Repositories bound to the tx handle see each other's writes and
// succeed or fail as one unit.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
