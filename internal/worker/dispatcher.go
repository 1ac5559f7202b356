// Package worker holds the long-running background processes: the
// outbox dispatcher and the reconcile runner.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkarimov/event-gateway/internal/gateway"
	"github.com/mkarimov/event-gateway/internal/metrics"
	"github.com/mkarimov/event-gateway/internal/model"
	"github.com/mkarimov/event-gateway/internal/repository"
)

// Sink delivers a single outbox message to the outside world. The HTTP
// gateway client and the Kafka producer both implement it.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg model.OutboxMessage) error
}

// Dispatcher drains pending outbox messages:
// - claims a batch (short tx, SKIP LOCKED, disjoint across instances),
// - fans it out to a worker pool that calls the sink,
// - finalizes outcomes in short transactions after the network calls.
// Any number of instances may run against the same table.
type Dispatcher struct {
	// Dependencies
	Outbox repository.OutboxRepository
	Sink   Sink
	Audit  repository.DeliveryLogRepository // optional, best-effort
	Log    *zap.Logger

	// Behavior
	Workers      int
	BatchSize    int
	PollInterval time.Duration
	ClaimLease   time.Duration
}

// NewDispatcher builds a dispatcher with sane defaults.
func NewDispatcher(
	outbox repository.OutboxRepository,
	sink Sink,
	audit repository.DeliveryLogRepository,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		Outbox:       outbox,
		Sink:         sink,
		Audit:        audit,
		Log:          log,
		Workers:      8,
		BatchSize:    100,
		PollInterval: time.Second,
		ClaimLease:   time.Minute,
	}
}

// Run polls until ctx is cancelled. The in-flight batch is finalized
// before returning, so shutdown never leaves a row claimed forever.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.Sink == nil {
		return errors.New("dispatcher: no sink configured")
	}
	if d.Workers <= 0 {
		d.Workers = 8
	}
	if d.BatchSize <= 0 {
		d.BatchSize = 100
	}
	if d.PollInterval <= 0 {
		d.PollInterval = time.Second
	}
	if d.ClaimLease <= 0 {
		d.ClaimLease = time.Minute
	}

	d.Log.Info("dispatcher started",
		zap.String("sink", d.Sink.Name()),
		zap.Int("workers", d.Workers),
		zap.Int("batch_size", d.BatchSize),
		zap.Duration("poll_interval", d.PollInterval),
	)

	for {
		n, err := d.Cycle(ctx)
		if err != nil && ctx.Err() == nil {
			d.Log.Error("dispatcher cycle failed", zap.Error(err))
		}

		if backlog, err := d.Outbox.CountPending(ctx); err == nil {
			metrics.OutboxBacklog.Set(float64(backlog))
		}

		// drained batches back-to-back: skip the sleep while there may
		// be more due work
		if n >= d.BatchSize {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			d.Log.Info("dispatcher stopped")
			return nil
		case <-time.After(d.PollInterval):
		}
	}
}

type outcome struct {
	msg model.OutboxMessage
	err error
}

// Cycle claims and processes one batch, returning the batch size.
func (d *Dispatcher) Cycle(ctx context.Context) (int, error) {
	batch, err := d.Outbox.ClaimBatch(ctx, d.BatchSize, d.ClaimLease)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	jobs := make(chan model.OutboxMessage)
	results := make(chan outcome, len(batch))

	workers := d.Workers
	if workers > len(batch) {
		workers = len(batch)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				results <- outcome{msg: m, err: d.Sink.Deliver(ctx, m)}
			}
		}()
	}

	for _, m := range batch {
		jobs <- m
	}
	close(jobs)
	wg.Wait()
	close(results)

	d.finalize(results)

	return len(batch), nil
}

// finalize commits outcomes in short transactions. It runs on a fresh
// context so a shutdown signal mid-batch still resolves every claim.
func (d *Dispatcher) finalize(results <-chan outcome) {
	fctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now()

	var (
		sent     []string
		released []repository.Release
		failed   []repository.Failure
		audit    []model.DeliveryAttempt
	)

	for out := range results {
		att := model.DeliveryAttempt{
			MessageID:      out.msg.ID,
			RegistrationID: out.msg.RegistrationID,
			Sink:           d.Sink.Name(),
			Attempt:        out.msg.Attempts,
			Timestamp:      now,
		}

		switch {
		case out.err == nil:
			att.Outcome = "sent"
			sent = append(sent, out.msg.ID)

		case gateway.IsPermanent(out.err):
			att.Outcome = "failed"
			att.Error = out.err.Error()
			failed = append(failed, repository.Failure{ID: out.msg.ID, Reason: out.err.Error()})
			d.Log.Error("delivery failed permanently",
				zap.String("message_id", out.msg.ID),
				zap.Int("attempts", out.msg.Attempts),
				zap.Error(out.err),
			)

		default:
			att.Outcome = "retry"
			att.Error = out.err.Error()
			released = append(released, repository.Release{
				ID:            out.msg.ID,
				NextAttemptAt: now.Add(nextBackoff(out.msg.Attempts)),
			})
			d.Log.Warn("delivery failed, will retry",
				zap.String("message_id", out.msg.ID),
				zap.Int("attempts", out.msg.Attempts),
				zap.Error(out.err),
			)
		}

		metrics.NotificationsTotal.WithLabelValues(att.Outcome, d.Sink.Name()).Inc()
		audit = append(audit, att)
	}

	if err := d.Outbox.MarkSentBatch(fctx, sent); err != nil {
		d.Log.Error("mark sent batch failed", zap.Error(err))
	}
	if err := d.Outbox.ReleaseBatch(fctx, released); err != nil {
		d.Log.Error("release batch failed", zap.Error(err))
	}
	if err := d.Outbox.MarkFailedBatch(fctx, failed); err != nil {
		d.Log.Error("mark failed batch failed", zap.Error(err))
	}

	if d.Audit != nil {
		if err := d.Audit.InsertAttempts(fctx, audit); err != nil {
			d.Log.Warn("delivery audit insert failed", zap.Error(err))
		}
	}

	if len(sent) > 0 || len(released) > 0 || len(failed) > 0 {
		d.Log.Info("cycle flushed",
			zap.Int("sent", len(sent)),
			zap.Int("retry", len(released)),
			zap.Int("failed", len(failed)),
		)
	}
}

// nextBackoff doubles from 2s per prior attempt, capped at 5m.
func nextBackoff(attempts int) time.Duration {
	d := 2 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= 5*time.Minute {
			return 5 * time.Minute
		}
	}
	return d
}
