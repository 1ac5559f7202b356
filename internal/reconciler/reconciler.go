// Package reconciler merges the upstream event feed into the local
// mirror tables by idempotent upsert-by-upstream-id.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkarimov/event-gateway/internal/feed"
	"github.com/mkarimov/event-gateway/internal/metrics"
	"github.com/mkarimov/event-gateway/internal/model"
	"github.com/mkarimov/event-gateway/internal/repository"
)

// FeedSource is the slice of feed.Client the reconciler consumes.
type FeedSource interface {
	FetchAll(ctx context.Context, q feed.Query) ([]feed.Record, error)
}

// Options selects the sync scope: a full walk, or records changed since
// a date (incremental).
type Options struct {
	Full  bool
	Since *time.Time
}

// Reconciler pulls the feed and upserts Place/Event mirrors, recording
// an audit row per run.
type Reconciler struct {
	Feed   FeedSource
	Events repository.EventsRepository
	Syncs  repository.SyncResultsRepository
	Log    *zap.Logger
}

func New(
	src FeedSource,
	eventsRepo repository.EventsRepository,
	syncsRepo repository.SyncResultsRepository,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{Feed: src, Events: eventsRepo, Syncs: syncsRepo, Log: log}
}

// Run fetches the feed and merges it. Running twice against an unchanged
// feed adds nothing the second time: the upstream id is the merge key,
// never a freshly generated one. A SyncResult row is persisted even when
// the run fails partway.
func (r *Reconciler) Run(ctx context.Context, opts Options) (model.SyncResult, error) {
	var q feed.Query
	if !opts.Full {
		q.ChangedSince = opts.Since
	}

	records, err := r.Feed.FetchAll(ctx, q)
	if err != nil {
		res := model.SyncResult{Error: strPtr(err.Error())}
		r.persist(res)
		return res, fmt.Errorf("fetch feed: %w", err)
	}

	var added, updated int
	var firstErr error

	for _, rec := range records {
		created, err := r.mergeOne(ctx, rec)
		if err != nil {
			// a single bad record must not abort the batch
			r.Log.Error("merge record failed", zap.String("event_id", rec.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if created {
			added++
			metrics.ReconcileTotal.WithLabelValues("added").Inc()
		} else {
			updated++
			metrics.ReconcileTotal.WithLabelValues("updated").Inc()
		}
	}

	res := model.SyncResult{AddedCount: added, UpdatedCount: updated}
	if firstErr != nil {
		res.Error = strPtr(firstErr.Error())
	}
	r.persist(res)

	r.Log.Info("reconcile finished",
		zap.Int("added", added),
		zap.Int("updated", updated),
		zap.Int("records", len(records)),
	)

	return res, nil
}

// mergeOne upserts the place first (create-if-absent), then the event.
// Each upsert is atomic on its own; a failure mid-feed leaves earlier
// records committed, which is safe because runs are re-runnable.
func (r *Reconciler) mergeOne(ctx context.Context, rec feed.Record) (bool, error) {
	status, ok := model.ParseEventStatus(rec.Status)
	if !ok {
		return false, fmt.Errorf("unknown event status %q", rec.Status)
	}

	var placeID *string
	if rec.Place != nil {
		if err := r.Events.UpsertPlace(ctx, model.Place{ID: rec.Place.ID, Name: rec.Place.Name}); err != nil {
			return false, fmt.Errorf("upsert place: %w", err)
		}
		placeID = &rec.Place.ID
	}

	created, err := r.Events.UpsertEvent(ctx, model.Event{
		ID:                   rec.ID,
		Name:                 rec.Name,
		EventTime:            rec.EventTime,
		Status:               status,
		PlaceID:              placeID,
		RegistrationDeadline: rec.RegistrationDeadline,
	})
	if err != nil {
		return false, fmt.Errorf("upsert event: %w", err)
	}
	return created, nil
}

// persist writes the audit row on a fresh context so it lands even when
// the run context is already cancelled.
func (r *Reconciler) persist(res model.SyncResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Syncs.Insert(ctx, res); err != nil {
		r.Log.Error("persist sync result failed", zap.Error(err))
	}
}

func strPtr(s string) *string { return &s }
