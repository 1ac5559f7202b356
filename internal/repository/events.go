package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkarimov/event-gateway/internal/model"
)

// EventsFilter narrows ListOpen results.
type EventsFilter struct {
	Name      string // substring match on event name
	OrderDesc bool   // order by event_time descending
	Limit     int
	Offset    int
}

// EventsRepository defines persistence for the event/place mirror tables.
// Mirror rows are written only by the reconciler (and dev seed tooling);
// the API side only reads.
type EventsRepository interface {
	// GetByID returns the event or nil when absent. If tx is non-nil the
	// read happens inside that transaction.
	GetByID(ctx context.Context, tx *sqlx.Tx, id string) (*model.Event, error)
	ListOpen(ctx context.Context, f EventsFilter) ([]model.Event, error)

	// UpsertPlace creates the place mirror if absent and leaves an
	// existing row untouched.
	UpsertPlace(ctx context.Context, p model.Place) error
	// UpsertEvent merges by upstream id: insert when absent (created=true),
	// otherwise overwrite the mutable fields.
	UpsertEvent(ctx context.Context, e model.Event) (created bool, err error)

	// DeleteOlderThan bulk-deletes events whose event_time is before the
	// cutoff, returning the number of rows removed. Registrations and
	// outbox rows go with them via FK cascade.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type EventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepositoryImpl {
	return &EventsRepositoryImpl{db: db}
}

func (r *EventsRepositoryImpl) GetByID(ctx context.Context, tx *sqlx.Tx, id string) (*model.Event, error) {
	const q = `
		SELECT e.id, e.name, e.event_time, e.status, e.place_id, p.name AS place_name,
		       e.registration_deadline, e.changed_at
		FROM events e
		LEFT JOIN places p ON p.id = e.place_id
		WHERE e.id = ?
	`
	var ev model.Event
	var err error
	if tx != nil {
		err = tx.GetContext(ctx, &ev, q, id)
	} else {
		err = r.db.GetContext(ctx, &ev, q, id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *EventsRepositoryImpl) ListOpen(ctx context.Context, f EventsFilter) ([]model.Event, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT e.id, e.name, e.event_time, e.status, e.place_id, p.name AS place_name,
		       e.registration_deadline, e.changed_at
		FROM events e
		LEFT JOIN places p ON p.id = e.place_id
		WHERE e.status = 'open'
	`
	args := []any{}

	if name := strings.TrimSpace(f.Name); name != "" {
		q += " AND e.name LIKE ?"
		args = append(args, "%"+name+"%")
	}

	if f.OrderDesc {
		q += " ORDER BY e.event_time DESC"
	} else {
		q += " ORDER BY e.event_time ASC"
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []model.Event
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventsRepositoryImpl) UpsertPlace(ctx context.Context, p model.Place) error {
	const q = `INSERT IGNORE INTO places (id, name) VALUES (?, ?)`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.Name)
	return err
}

func (r *EventsRepositoryImpl) UpsertEvent(ctx context.Context, e model.Event) (bool, error) {
	const q = `
		INSERT INTO events (id, name, event_time, status, place_id, registration_deadline, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
		    name = VALUES(name),
		    event_time = VALUES(event_time),
		    status = VALUES(status),
		    place_id = VALUES(place_id),
		    registration_deadline = VALUES(registration_deadline),
		    changed_at = NOW()
	`
	res, err := r.db.ExecContext(ctx, q,
		e.ID, e.Name, e.EventTime, e.Status.String(), e.PlaceID, e.RegistrationDeadline,
	)
	if err != nil {
		return false, err
	}

	// MySQL reports 1 affected row for an insert, 2 for an update
	// (0 when the update changed nothing).
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *EventsRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM events WHERE event_time < ?`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
