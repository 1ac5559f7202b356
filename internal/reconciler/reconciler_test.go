package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkarimov/event-gateway/internal/feed"
	"github.com/mkarimov/event-gateway/internal/model"
	"github.com/mkarimov/event-gateway/internal/repository"
)

type fakeFeed struct {
	records []feed.Record
	err     error
	lastQ   feed.Query
}

func (f *fakeFeed) FetchAll(ctx context.Context, q feed.Query) ([]feed.Record, error) {
	f.lastQ = q
	return f.records, f.err
}

// memEvents is an in-memory event/place mirror with the same merge
// semantics as the MySQL implementation.
type memEvents struct {
	places map[string]model.Place
	events map[string]model.Event
}

func newMemEvents() *memEvents {
	return &memEvents{places: map[string]model.Place{}, events: map[string]model.Event{}}
}

func (m *memEvents) GetByID(ctx context.Context, tx *sqlx.Tx, id string) (*model.Event, error) {
	ev, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (m *memEvents) ListOpen(ctx context.Context, f repository.EventsFilter) ([]model.Event, error) {
	return nil, nil
}

func (m *memEvents) UpsertPlace(ctx context.Context, p model.Place) error {
	if _, ok := m.places[p.ID]; !ok {
		m.places[p.ID] = p
	}
	return nil
}

func (m *memEvents) UpsertEvent(ctx context.Context, e model.Event) (bool, error) {
	_, existed := m.events[e.ID]
	m.events[e.ID] = e
	return !existed, nil
}

func (m *memEvents) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type memSyncs struct {
	rows []model.SyncResult
}

func (m *memSyncs) Insert(ctx context.Context, res model.SyncResult) error {
	m.rows = append(m.rows, res)
	return nil
}

func (m *memSyncs) List(ctx context.Context, limit, offset int) ([]model.SyncResult, error) {
	return m.rows, nil
}

func sampleRecords() []feed.Record {
	deadline := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return []feed.Record{
		{
			ID:        "ev-1",
			Name:      "Go Meetup",
			EventTime: time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC),
			Status:    "open",
			Place:     &feed.PlaceRecord{ID: "pl-1", Name: "Main Hall"},
			RegistrationDeadline: &deadline,
		},
		{
			ID:        "ev-2",
			Name:      "Closing Party",
			EventTime: time.Date(2026, 9, 3, 20, 0, 0, 0, time.UTC),
			Status:    "closed",
		},
	}
}

func TestRunMergesFeedIntoMirror(t *testing.T) {
	events := newMemEvents()
	syncs := &memSyncs{}
	r := New(&fakeFeed{records: sampleRecords()}, events, syncs, zap.NewNop())

	res, err := r.Run(context.Background(), Options{Full: true})
	require.NoError(t, err)

	assert.Equal(t, 2, res.AddedCount)
	assert.Equal(t, 0, res.UpdatedCount)
	assert.Nil(t, res.Error)

	ev, err := events.GetByID(context.Background(), nil, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.EventStatusOpen, ev.Status)
	require.NotNil(t, ev.PlaceID)
	assert.Equal(t, "pl-1", *ev.PlaceID)
	assert.Contains(t, events.places, "pl-1")

	require.Len(t, syncs.rows, 1)
	assert.Equal(t, 2, syncs.rows[0].AddedCount)
}

func TestRunIsIdempotent(t *testing.T) {
	events := newMemEvents()
	syncs := &memSyncs{}
	src := &fakeFeed{records: sampleRecords()}
	r := New(src, events, syncs, zap.NewNop())

	_, err := r.Run(context.Background(), Options{Full: true})
	require.NoError(t, err)

	// unchanged feed: the second run updates in place, adds nothing,
	// and the mirror does not grow
	res, err := r.Run(context.Background(), Options{Full: true})
	require.NoError(t, err)

	assert.Equal(t, 0, res.AddedCount)
	assert.Equal(t, 2, res.UpdatedCount)
	assert.Len(t, events.events, 2)
	assert.Len(t, syncs.rows, 2)
}

func TestRunPassesChangedSince(t *testing.T) {
	src := &fakeFeed{}
	r := New(src, newMemEvents(), &memSyncs{}, zap.NewNop())

	since := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	_, err := r.Run(context.Background(), Options{Since: &since})
	require.NoError(t, err)
	require.NotNil(t, src.lastQ.ChangedSince)
	assert.Equal(t, since, *src.lastQ.ChangedSince)

	// a full walk ignores the date entirely
	_, err = r.Run(context.Background(), Options{Full: true, Since: &since})
	require.NoError(t, err)
	assert.Nil(t, src.lastQ.ChangedSince)
}

func TestRunFeedErrorStillRecordsResult(t *testing.T) {
	syncs := &memSyncs{}
	r := New(&fakeFeed{err: errors.New("upstream 503")}, newMemEvents(), syncs, zap.NewNop())

	_, err := r.Run(context.Background(), Options{Full: true})
	require.Error(t, err)

	require.Len(t, syncs.rows, 1)
	require.NotNil(t, syncs.rows[0].Error)
	assert.Contains(t, *syncs.rows[0].Error, "upstream 503")
}

func TestRunBadRecordDoesNotAbortBatch(t *testing.T) {
	records := sampleRecords()
	records[0].Status = "postponed" // not a status we mirror

	events := newMemEvents()
	syncs := &memSyncs{}
	r := New(&fakeFeed{records: records}, events, syncs, zap.NewNop())

	res, err := r.Run(context.Background(), Options{Full: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.AddedCount)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "postponed")
	assert.Len(t, events.events, 1)
}
