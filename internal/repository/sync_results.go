package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mkarimov/event-gateway/internal/model"
)

// SyncResultsRepository persists the append-only reconciliation audit log.
type SyncResultsRepository interface {
	Insert(ctx context.Context, res model.SyncResult) error
	List(ctx context.Context, limit, offset int) ([]model.SyncResult, error)
}

type SyncResultsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSyncResultsRepository(db *sqlx.DB) *SyncResultsRepositoryImpl {
	return &SyncResultsRepositoryImpl{db: db}
}

func (r *SyncResultsRepositoryImpl) Insert(ctx context.Context, res model.SyncResult) error {
	const q = `
		INSERT INTO sync_results (sync_date, added_count, updated_count, error)
		VALUES (NOW(), ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, q, res.AddedCount, res.UpdatedCount, res.Error)
	return err
}

func (r *SyncResultsRepositoryImpl) List(ctx context.Context, limit, offset int) ([]model.SyncResult, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT id, sync_date, added_count, updated_count, error
		FROM sync_results
		ORDER BY sync_date DESC
		LIMIT ? OFFSET ?
	`
	var rows []model.SyncResult
	if err := r.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}
