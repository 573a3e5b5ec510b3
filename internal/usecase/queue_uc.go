package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/repository"
	"salestool-radar/internal/infra/metrics"
)

// Compile-time check
var _ QueueUseCase = (*queueUC)(nil)

// AddJobOptions tunes a new queue job; zero values fall back to defaults.
type AddJobOptions struct {
	Priority    int
	MaxAttempts int
}

type QueueUseCase interface {
	AddJob(ctx context.Context, jobType string, payload json.RawMessage, opts AddJobOptions) (string, error)
	JobsByStatus(ctx context.Context, status model.QueueJobStatus) ([]*model.QueueJob, error)

	// Retry moves a failed job with attempts remaining back to pending.
	// A false return is a normal outcome (wrong state), not an error.
	Retry(ctx context.Context, id string) (bool, error)

	// Cancel removes a pending or failed job. Jobs mid-processing cannot
	// be cancelled; dispatched work has no cooperative interrupt.
	Cancel(ctx context.Context, id string) (bool, error)

	// ClearFailed removes only terminal failed jobs and reports the count.
	ClearFailed(ctx context.Context) (int, error)

	Stats(ctx context.Context) (*model.QueueStats, error)
}

type queueUC struct {
	jobs               repository.QueueJobRepository
	defaultMaxAttempts int
	log                *zerolog.Logger
}

func NewQueueUseCase(jobs repository.QueueJobRepository, defaultMaxAttempts int, logger *zerolog.Logger) *queueUC {
	if defaultMaxAttempts <= 0 {
		defaultMaxAttempts = 3
	}
	l := logger.With().Str("component", "queue").Logger()
	return &queueUC{jobs: jobs, defaultMaxAttempts: defaultMaxAttempts, log: &l}
}

func (q *queueUC) AddJob(ctx context.Context, jobType string, payload json.RawMessage, opts AddJobOptions) (string, error) {
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return "", domain.ErrInvalidArgument
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.defaultMaxAttempts
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	job := &model.QueueJob{
		ID:          ulid.Make().String(),
		Type:        jobType,
		Payload:     payload,
		Status:      model.QueueJobPending,
		Priority:    opts.Priority,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now(),
	}
	if err := q.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	metrics.IncQueueJob("enqueued")
	q.log.Info().Str("job_id", job.ID).Str("type", jobType).Int("priority", job.Priority).Msg("job enqueued")
	return job.ID, nil
}

func (q *queueUC) JobsByStatus(ctx context.Context, status model.QueueJobStatus) ([]*model.QueueJob, error) {
	switch status {
	case model.QueueJobPending, model.QueueJobProcessing, model.QueueJobCompleted, model.QueueJobFailed:
	default:
		return nil, domain.ErrInvalidArgument
	}
	return q.jobs.ListByStatus(ctx, repository.NoTX, status)
}

func (q *queueUC) Retry(ctx context.Context, id string) (bool, error) {
	job, err := q.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if !job.RetryEligible() {
		return false, nil
	}

	job.Attempts++
	job.LastError = ""
	job.Status = model.QueueJobPending
	job.StartedAt = nil
	job.CompletedAt = nil
	if err := q.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return false, fmt.Errorf("retry %s: %w", id, err)
	}
	metrics.IncQueueJob("retried")
	q.log.Info().Str("job_id", id).Int("attempts", job.Attempts).Int("max_attempts", job.MaxAttempts).Msg("job requeued")
	return true, nil
}

func (q *queueUC) Cancel(ctx context.Context, id string) (bool, error) {
	job, err := q.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if job.Status != model.QueueJobPending && job.Status != model.QueueJobFailed {
		return false, nil
	}
	if err := q.jobs.Delete(ctx, repository.NoTX, id); err != nil {
		return false, fmt.Errorf("cancel %s: %w", id, err)
	}
	metrics.IncQueueJob("cancelled")
	q.log.Info().Str("job_id", id).Str("was", string(job.Status)).Msg("job cancelled")
	return true, nil
}

func (q *queueUC) ClearFailed(ctx context.Context) (int, error) {
	n, err := q.jobs.DeleteTerminalFailed(ctx, repository.NoTX)
	if err != nil {
		return 0, fmt.Errorf("clear failed jobs: %w", err)
	}
	if n > 0 {
		q.log.Info().Int("removed", n).Msg("terminal failed jobs cleared")
	}
	return n, nil
}

func (q *queueUC) Stats(ctx context.Context) (*model.QueueStats, error) {
	counts, err := q.jobs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &model.QueueStats{
		Pending:    counts[model.QueueJobPending],
		Processing: counts[model.QueueJobProcessing],
		Completed:  counts[model.QueueJobCompleted],
		Failed:     counts[model.QueueJobFailed],
	}, nil
}
