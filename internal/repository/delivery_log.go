package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mkarimov/event-gateway/internal/model"
)

// DeliveryLogRepository records dispatcher attempts to ClickHouse for
// operator reports. Writes are best-effort: a lost audit row never
// blocks or fails a delivery.
type DeliveryLogRepository interface {
	InsertAttempts(ctx context.Context, rows []model.DeliveryAttempt) error
	List(ctx context.Context, messageID, outcome string, limit, offset int) ([]model.DeliveryAttempt, error)
}

type DeliveryLogRepositoryImpl struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewDeliveryLogRepository(ch *sqlx.DB) *DeliveryLogRepositoryImpl {
	return &DeliveryLogRepositoryImpl{ch: ch}
}

// InsertAttempts writes rows through a prepared batch, the clickhouse-go
// idiom for multi-row inserts.
func (r *DeliveryLogRepositoryImpl) InsertAttempts(ctx context.Context, rows []model.DeliveryAttempt) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO evgw.delivery_attempts
		    (message_id, registration_id, sink, outcome, error, attempt, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PreparexContext(ctx, q)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range rows {
		if _, err := stmt.ExecContext(ctx,
			a.MessageID, a.RegistrationID, a.Sink, a.Outcome, a.Error, a.Attempt, a.Timestamp,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *DeliveryLogRepositoryImpl) List(ctx context.Context, messageID, outcome string, limit, offset int) ([]model.DeliveryAttempt, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT message_id, registration_id, sink, outcome, error, attempt, ts
		FROM evgw.delivery_attempts
		WHERE 1 = 1
	`
	args := []any{}

	if messageID != "" {
		q += " AND message_id = ?"
		args = append(args, messageID)
	}
	if outcome != "" {
		q += " AND outcome = ?"
		args = append(args, outcome)
	}

	q += " ORDER BY ts DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.DeliveryAttempt
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
