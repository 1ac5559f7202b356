package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// TxRunner executes a function inside a single database transaction.
// Services use it to make "registration + outbox" one atomic unit.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type TxRunnerImpl struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) *TxRunnerImpl {
	return &TxRunnerImpl{db: db}
}

// WithTx begins a transaction, runs fn, and commits. Any error from fn
// rolls the whole unit back.
func (r *TxRunnerImpl) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
