package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/repository"
	"salestool-radar/internal/infra/metrics"
)

// Handler executes one queue job's payload. A returned error marks the
// job failed; it never triggers an automatic retry (retries are an
// explicit operator action).
type Handler func(ctx context.Context, payload json.RawMessage) error

// QueueRunner polls for pending queue jobs and dispatches them to
// handlers registered per job type.
type QueueRunner struct {
	jobs     repository.QueueJobRepository
	handlers map[string]Handler
	interval time.Duration
	log      *zerolog.Logger
}

func NewQueueRunner(jobs repository.QueueJobRepository, interval time.Duration, logger *zerolog.Logger) *QueueRunner {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	l := logger.With().Str("component", "queue-runner").Logger()
	return &QueueRunner{
		jobs:     jobs,
		handlers: make(map[string]Handler),
		interval: interval,
		log:      &l,
	}
}

// Register binds a handler to a job type. Not safe to call after Start.
func (r *QueueRunner) Register(jobType string, h Handler) {
	r.handlers[jobType] = h
}

// Start runs the poll loop until the context is cancelled. Claims are
// submitted to the pool so several jobs may run concurrently; per-job
// exclusivity is guaranteed by the claiming query.
func (r *QueueRunner) Start(ctx context.Context, pool *Pool) {
	r.log.Info().Int("handlers", len(r.handlers)).Msg("queue runner started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("queue runner stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				r.processOne(ctx)
				return nil
			})
		}
	}
}

func (r *QueueRunner) processOne(ctx context.Context) {
	job, err := r.jobs.FetchAndMarkProcessing(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.log.Error().Err(err).Msg("failed to claim queue job")
		}
		return
	}

	r.log.Info().Str("job_id", job.ID).Str("type", job.Type).Msg("processing queue job")
	start := time.Now()

	err = r.dispatch(ctx, job)
	latency := time.Since(start)

	now := time.Now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = model.QueueJobFailed
		job.LastError = err.Error()
		r.log.Error().Err(err).Str("job_id", job.ID).Str("type", job.Type).
			Int("attempts", job.Attempts).Int("max_attempts", job.MaxAttempts).Msg("queue job failed")
	} else {
		job.Status = model.QueueJobCompleted
		job.LastError = ""
	}

	metrics.IncQueueJobFinished(string(job.Status), job.Type)
	// Final update runs on a background context so a cancelled poll loop
	// still records the outcome.
	if err := r.jobs.Save(context.Background(), repository.NoTX, job); err != nil {
		r.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist queue job outcome")
	}
	r.log.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Dur("duration", latency).Msg("queue job finished")
}

func (r *QueueRunner) dispatch(ctx context.Context, job *model.QueueJob) error {
	h, ok := r.handlers[job.Type]
	if !ok {
		return fmt.Errorf("no handler registered for job type %q", job.Type)
	}
	return h(ctx, job.Payload)
}
