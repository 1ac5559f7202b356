package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkarimov/event-gateway/internal/model"
)

// Release sends a claimed message back to pending with a backoff delay.
type Release struct {
	ID            string
	NextAttemptAt time.Time
}

// Failure parks a message in the failed state for operator attention.
type Failure struct {
	ID     string
	Reason string
}

// OutboxRepository defines persistence for the outbox table. Rows are
// inserted by the registration writer and mutated only by the dispatcher.
type OutboxRepository interface {
	// Insert writes a pending outbox row inside the given transaction,
	// the same transaction that writes the owning registration.
	Insert(ctx context.Context, tx *sqlx.Tx, m model.OutboxMessage) error

	// ClaimBatch atomically claims up to limit due messages for this
	// dispatcher instance, oldest first. Rows claimed by a live peer are
	// skipped; rows whose claim is older than lease are reclaimed. The
	// row locks are released when the claim transaction commits; they
	// are never held across a network call.
	ClaimBatch(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxMessage, error)

	// MarkSentBatch finalizes delivered messages. The status guard makes
	// the pending -> sent transition happen at most once per row.
	MarkSentBatch(ctx context.Context, ids []string) error

	// ReleaseBatch returns claimed messages to pending for a later cycle.
	ReleaseBatch(ctx context.Context, items []Release) error

	// MarkFailedBatch parks messages whose delivery failed permanently.
	MarkFailedBatch(ctx context.Context, items []Failure) error

	CountPending(ctx context.Context) (int64, error)
}

type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

func (r *OutboxRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, m model.OutboxMessage) error {
	const q = `
		INSERT INTO outbox_messages
		    (id, registration_id, payload, status, attempts, next_attempt_at, created_at)
		VALUES
		    (?,  ?,               ?,       'pending', 0,     NOW(),           NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, m.ID, m.RegistrationID, m.Payload)
		return err
	})
}

// ClaimBatch runs a single short transaction: SELECT ... FOR UPDATE SKIP
// LOCKED picks a disjoint subset per concurrent dispatcher, then a
// conditional UPDATE stamps the lease. A crashed claimer's rows become
// reclaimable once claimed_at falls outside the lease window.
func (r *OutboxRepositoryImpl) ClaimBatch(ctx context.Context, limit int, lease time.Duration) ([]model.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	if lease <= 0 {
		lease = time.Minute
	}

	const selectQ = `
		SELECT id, registration_id, payload, status, attempts, next_attempt_at,
		       claimed_at, last_error, created_at, sent_at
		FROM outbox_messages
		WHERE (status = 'pending' AND next_attempt_at <= NOW())
		   OR (status = 'claimed' AND claimed_at < NOW() - INTERVAL ? SECOND)
		ORDER BY created_at ASC
		LIMIT ?
		FOR UPDATE SKIP LOCKED
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var batch []model.OutboxMessage
	if err := tx.SelectContext(ctx, &batch, selectQ, int(lease.Seconds()), limit); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]string, len(batch))
	for i := range batch {
		ids[i] = batch[i].ID
	}

	const claimQ = `
		UPDATE outbox_messages
		SET status = 'claimed', claimed_at = NOW(), attempts = attempts + 1
		WHERE id IN (?)
	`
	query, args, err := sqlx.In(claimQ, ids)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range batch {
		batch[i].Status = model.OutboxStatusClaimed
		batch[i].Attempts++
		batch[i].ClaimedAt = &now
	}
	return batch, nil
}

func (r *OutboxRepositoryImpl) MarkSentBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `
		UPDATE outbox_messages
		SET status = 'sent', sent_at = NOW(), last_error = NULL
		WHERE id IN (?) AND status <> 'sent'
	`
	query, args, err := sqlx.In(base, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

func (r *OutboxRepositoryImpl) ReleaseBatch(ctx context.Context, items []Release) error {
	if len(items) == 0 {
		return nil
	}
	const q = `
		UPDATE outbox_messages
		SET status = 'pending', claimed_at = NULL, next_attempt_at = ?
		WHERE id = ? AND status = 'claimed'
	`
	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		for _, it := range items {
			if _, err := tx.ExecContext(ctx, q, it.NextAttemptAt, it.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OutboxRepositoryImpl) MarkFailedBatch(ctx context.Context, items []Failure) error {
	if len(items) == 0 {
		return nil
	}
	const q = `
		UPDATE outbox_messages
		SET status = 'failed', claimed_at = NULL, last_error = ?
		WHERE id = ? AND status = 'claimed'
	`
	return r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		for _, it := range items {
			if _, err := tx.ExecContext(ctx, q, it.Reason, it.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OutboxRepositoryImpl) CountPending(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM outbox_messages WHERE status IN ('pending', 'claimed')`
	var n int64
	if err := r.db.GetContext(ctx, &n, q); err != nil {
		return 0, err
	}
	return n, nil
}
