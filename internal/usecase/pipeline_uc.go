package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
	"salestool-radar/internal/domain/ports/repository"
	"salestool-radar/internal/infra/metrics"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

type PipelineUseCase interface {
	// ProcessBatch drains up to limit unprocessed postings, oldest first.
	// Returns domain.ErrBatchRunning when another run is active; the
	// contended caller does no work at all.
	ProcessBatch(ctx context.Context, limit int) (*model.BatchSummary, error)

	// ProcessSingle analyzes one posting by id, for manual retries. It
	// shares the run flag with ProcessBatch, so it also reports
	// domain.ErrBatchRunning while a batch is active.
	ProcessSingle(ctx context.Context, postingID string) (*model.ItemResult, error)

	Status() model.RunStatus
}

type pipelineUC struct {
	postings   repository.PostingRepository
	dedup      DedupUseCase
	classifier adapter.Classifier
	callDelay  time.Duration
	log        *zerolog.Logger

	// run state is in-process only; a restart clears it. This is not a
	// distributed lock: one active worker per deployment is assumed.
	mu  sync.Mutex
	run model.RunStatus
}

func NewPipelineUseCase(
	postings repository.PostingRepository,
	dedup DedupUseCase,
	classifier adapter.Classifier,
	callDelay time.Duration,
	logger *zerolog.Logger,
) *pipelineUC {
	if callDelay <= 0 {
		callDelay = time.Second
	}
	l := logger.With().Str("component", "pipeline").Logger()
	return &pipelineUC{
		postings:   postings,
		dedup:      dedup,
		classifier: classifier,
		callDelay:  callDelay,
		log:        &l,
	}
}

// acquire flips the run flag, failing fast when a run is already active.
func (p *pipelineUC) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run.IsRunning {
		return domain.ErrBatchRunning
	}
	now := time.Now()
	p.run = model.RunStatus{IsRunning: true, StartedAt: &now}
	return nil
}

func (p *pipelineUC) release() {
	p.mu.Lock()
	p.run.IsRunning = false
	p.mu.Unlock()
}

func (p *pipelineUC) Status() model.RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run
}

func (p *pipelineUC) ProcessBatch(ctx context.Context, limit int) (*model.BatchSummary, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if err := p.acquire(); err != nil {
		metrics.IncBatchRun("busy")
		return nil, err
	}
	defer p.release()

	started := time.Now()
	summary := &model.BatchSummary{Errors: []string{}, StartedAt: started}

	batch, err := p.postings.FetchUnprocessed(ctx, repository.NoTX, limit)
	if err != nil {
		// Cannot reach the store at all: abort the whole call, nothing
		// is retried internally.
		metrics.IncBatchRun("store_error")
		return nil, fmt.Errorf("%w: fetch batch: %v", domain.ErrStoreUnavailable, err)
	}
	p.log.Info().Int("batch_size", len(batch)).Int("limit", limit).Msg("batch run started")

	for _, posting := range batch {
		// Stop requests are honored only between items; an in-flight
		// classifier call is never interrupted from here.
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("run stopped: %v", ctx.Err()))
			break
		}

		item := p.processPosting(ctx, posting)
		summary.JobsProcessed++
		if item.Verdict != nil && item.Verdict.UsesTool {
			summary.ToolsDetected++
		}
		if item.Error != "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("posting %s: %s", posting.ID, item.Error))
		}

		p.mu.Lock()
		p.run.JobsProcessed = summary.JobsProcessed
		p.run.ToolsDetected = summary.ToolsDetected
		p.mu.Unlock()
	}

	remaining, err := p.postings.CountUnprocessed(ctx, repository.NoTX)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("count remaining: %v", err))
	} else {
		summary.RemainingUnprocessed = remaining
	}
	summary.FinishedAt = time.Now()

	metrics.IncBatchRun("completed")
	metrics.ObserveBatch(summary.JobsProcessed)
	p.log.Info().
		Int("jobs_processed", summary.JobsProcessed).
		Int("tools_detected", summary.ToolsDetected).
		Int("errors", len(summary.Errors)).
		Int("remaining", summary.RemainingUnprocessed).
		Dur("duration", summary.FinishedAt.Sub(started)).
		Msg("batch run finished")
	return summary, nil
}

func (p *pipelineUC) ProcessSingle(ctx context.Context, postingID string) (*model.ItemResult, error) {
	if postingID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := p.acquire(); err != nil {
		return nil, err
	}
	defer p.release()

	posting, err := p.postings.FindByID(ctx, repository.NoTX, postingID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch posting: %v", domain.ErrStoreUnavailable, err)
	}
	item := p.processPosting(ctx, posting)
	return &item, nil
}

// processPosting runs one posting through classify -> dedup -> mark
// processed. The posting is marked processed even when the classifier
// fails, so one malformed posting can never block the backlog.
func (p *pipelineUC) processPosting(ctx context.Context, posting *model.JobPosting) model.ItemResult {
	item := model.ItemResult{PostingID: posting.ID, Company: posting.Company}

	callStart := time.Now()
	verdict, err := p.classifier.Classify(ctx, adapter.PostingText{
		Company:     posting.Company,
		Title:       posting.Title,
		Description: posting.Description,
	})
	metrics.ObserveClassifierCall(time.Since(callStart), err == nil)

	// Fixed inter-call delay, applied after every classifier call no
	// matter the outcome, to respect the provider's rate limits.
	p.pause(ctx)

	if err != nil {
		item.Error = err.Error()
		metrics.IncPostingProcessed("analysis_error")
		p.log.Warn().Err(err).Str("posting_id", posting.ID).Str("company", posting.Company).Msg("analysis failed")
	} else {
		item.Analyzed = true
		item.Verdict = verdict
		if verdict.UsesTool {
			company, created, err := p.dedup.ResolveCompany(ctx, posting, verdict)
			if err != nil {
				item.Error = fmt.Sprintf("resolve company: %v", err)
				metrics.IncPostingProcessed("dedup_error")
				p.log.Error().Err(err).Str("posting_id", posting.ID).Msg("company resolution failed")
			} else {
				item.CompanyID = company.ID
				item.NewCompany = created
				metrics.IncToolDetected(string(verdict.ToolDetected))
				metrics.IncPostingProcessed("tool_detected")
			}
		} else {
			metrics.IncPostingProcessed("no_tool")
		}
	}

	if err := p.postings.MarkProcessed(ctx, repository.NoTX, posting.ID, time.Now()); err != nil {
		if item.Error != "" {
			item.Error += "; "
		}
		item.Error += fmt.Sprintf("mark processed: %v", err)
		p.log.Error().Err(err).Str("posting_id", posting.ID).Msg("failed to mark posting processed")
	}
	return item
}

// pause waits out the configured inter-call delay, returning early only
// when the surrounding run is being stopped.
func (p *pipelineUC) pause(ctx context.Context) {
	timer := time.NewTimer(p.callDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
