package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/usecase"
)

// BatchWorker periodically drains the posting backlog through the
// pipeline. A run already in progress is a normal skip, not a failure.
type BatchWorker struct {
	interval time.Duration
	limit    int
	pipeline usecase.PipelineUseCase
	log      *zerolog.Logger
}

func NewBatchWorker(interval time.Duration, limit int, pipeline usecase.PipelineUseCase, logger *zerolog.Logger) *BatchWorker {
	l := logger.With().Str("component", "batch-worker").Logger()
	return &BatchWorker{
		interval: interval,
		limit:    limit,
		pipeline: pipeline,
		log:      &l,
	}
}

func (w *BatchWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Int("limit", w.limit).Msg("starting scheduled batch worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping scheduled batch worker")
			return ctx.Err()
		case <-ticker.C:
			summary, err := w.pipeline.ProcessBatch(ctx, w.limit)
			if err != nil {
				if errors.Is(err, domain.ErrBatchRunning) {
					w.log.Debug().Msg("batch already running, skipping tick")
					continue
				}
				w.log.Error().Err(err).Msg("scheduled batch failed")
				continue
			}
			if summary.JobsProcessed > 0 {
				w.log.Info().Int("jobs_processed", summary.JobsProcessed).
					Int("tools_detected", summary.ToolsDetected).
					Int("remaining", summary.RemainingUnprocessed).Msg("scheduled batch completed")
			}
		}
	}
}
