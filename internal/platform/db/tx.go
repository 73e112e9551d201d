package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type contextKey string

const TxKey contextKey = "db_tx"

// Beginner starts transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx runs fn inside a single transaction. The transaction is placed on the
// context so repository methods route their statements through it via conn(ctx).
// Rollback is deferred on every exit path; commit only happens when fn returns nil.
func WithTx(ctx context.Context, db Beginner, fn func(ctx context.Context) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, TxKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TxFromContext retrieves the active transaction from context, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}
