package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/mkarimov/event-gateway/internal/model"
)

// ErrDuplicate is returned when an insert violates a unique key
// (one registration per (event, email)).
var ErrDuplicate = errors.New("duplicate key")

const mysqlErrDuplicateEntry = 1062

// RegistrationsRepository defines persistence for the registrations table.
type RegistrationsRepository interface {
	// Insert writes a registration row inside the given transaction.
	// Returns ErrDuplicate when the (event_id, email) pair already exists.
	Insert(ctx context.Context, tx *sqlx.Tx, reg model.Registration) error
}

type RegistrationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewRegistrationsRepository(db *sqlx.DB) *RegistrationsRepositoryImpl {
	return &RegistrationsRepositoryImpl{db: db}
}

func (r *RegistrationsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *RegistrationsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, reg model.Registration) error {
	const q = `
		INSERT INTO registrations
		    (id, event_id, full_name, email, confirmation_code, created_at)
		VALUES
		    (?,  ?,        ?,         ?,     ?,                 NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			reg.ID, reg.EventID, reg.FullName, reg.Email, reg.ConfirmationCode,
		)

		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
			return fmt.Errorf("registration %s/%s: %w", reg.EventID, reg.Email, ErrDuplicate)
		}

		return err
	})
}
