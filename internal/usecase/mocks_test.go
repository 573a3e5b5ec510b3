//go:build !integration

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/adapter"
	"salestool-radar/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// mockTxManager runs the callback directly; the in-memory repos below
// ignore the tx handle anyway.
type mockTxManager struct {
	WithTxFunc func(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *mockTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opts, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- postings ----

type memPostingRepo struct {
	mu       sync.Mutex
	postings map[string]*model.JobPosting
	writes   int

	FetchUnprocessedFunc func(ctx context.Context, limit int) ([]*model.JobPosting, error)
	MarkProcessedFunc    func(ctx context.Context, id string) error
}

func newMemPostingRepo() *memPostingRepo {
	return &memPostingRepo{postings: make(map[string]*model.JobPosting)}
}

func (m *memPostingRepo) Save(_ context.Context, _ repository.Tx, p *model.JobPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.postings[p.ID] = &cp
	m.writes++
	return nil
}

func (m *memPostingRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.JobPosting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPostingRepo) FetchUnprocessed(ctx context.Context, _ repository.Tx, limit int) ([]*model.JobPosting, error) {
	if m.FetchUnprocessedFunc != nil {
		return m.FetchUnprocessedFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.JobPosting, 0, limit)
	for _, p := range m.postings {
		if !p.Processed {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScrapedAt.Before(out[j].ScrapedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPostingRepo) MarkProcessed(ctx context.Context, _ repository.Tx, id string, analyzedAt time.Time) error {
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.postings[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Processed = true
	at := analyzedAt
	p.AnalyzedAt = &at
	m.writes++
	return nil
}

func (m *memPostingRepo) CountUnprocessed(_ context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.postings {
		if !p.Processed {
			n++
		}
	}
	return n, nil
}

func (m *memPostingRepo) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// ---- companies ----

type memCompanyRepo struct {
	mu        sync.Mutex
	companies map[string]*model.IdentifiedCompany

	SaveFunc               func(ctx context.Context, c *model.IdentifiedCompany) error
	ReassignDependentsFunc func(ctx context.Context, fromID, toID string) error
	MarkMergedFunc         func(ctx context.Context, id, primaryID string) error
}

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{companies: make(map[string]*model.IdentifiedCompany)}
}

func (m *memCompanyRepo) Save(ctx context.Context, _ repository.Tx, c *model.IdentifiedCompany) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.companies[c.ID] = &cp
	return nil
}

func (m *memCompanyRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.IdentifiedCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCompanyRepo) FindActiveByNormalizedName(_ context.Context, _ repository.Tx, normalized string) (*model.IdentifiedCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.companies {
		if c.Active() && c.NormalizedName == normalized {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCompanyRepo) ListActive(_ context.Context, _ repository.Tx) ([]*model.IdentifiedCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.IdentifiedCompany, 0, len(m.companies))
	for _, c := range m.companies {
		if c.Active() {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentifiedAt.Before(out[j].IdentifiedAt) })
	return out, nil
}

func (m *memCompanyRepo) ReassignDependents(ctx context.Context, _ repository.Tx, fromID, toID string) error {
	if m.ReassignDependentsFunc != nil {
		return m.ReassignDependentsFunc(ctx, fromID, toID)
	}
	return nil
}

func (m *memCompanyRepo) MarkMerged(ctx context.Context, _ repository.Tx, id, primaryID string) error {
	if m.MarkMergedFunc != nil {
		return m.MarkMergedFunc(ctx, id, primaryID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Active() {
		return domain.ErrCompanyMerged
	}
	p := primaryID
	c.MergedInto = &p
	return nil
}

func (m *memCompanyRepo) SetLeadStatus(_ context.Context, _ repository.Tx, id string, generated bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok || !c.Active() {
		return domain.ErrNotFound
	}
	c.LeadsGenerated = generated
	if generated {
		t := at
		c.LeadsGeneratedAt = &t
	} else {
		c.LeadsGeneratedAt = nil
	}
	return nil
}

func (m *memCompanyRepo) CountActive(_ context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.companies {
		if c.Active() {
			n++
		}
	}
	return n, nil
}

func (m *memCompanyRepo) CountMerged(_ context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.companies {
		if !c.Active() {
			n++
		}
	}
	return n, nil
}

// ---- queue jobs ----

type memQueueJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.QueueJob

	SaveFunc func(ctx context.Context, job *model.QueueJob) error
}

func newMemQueueJobRepo() *memQueueJobRepo {
	return &memQueueJobRepo{jobs: make(map[string]*model.QueueJob)}
}

func (m *memQueueJobRepo) Save(ctx context.Context, _ repository.Tx, job *model.QueueJob) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memQueueJobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memQueueJobRepo) ListByStatus(_ context.Context, _ repository.Tx, status model.QueueJobStatus) ([]*model.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.QueueJob, 0)
	for _, j := range m.jobs {
		if j.Status == status {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memQueueJobRepo) FetchAndMarkProcessing(_ context.Context) (*model.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *model.QueueJob
	for _, j := range m.jobs {
		if j.Status != model.QueueJobPending {
			continue
		}
		if next == nil || j.Priority > next.Priority ||
			(j.Priority == next.Priority && j.CreatedAt.Before(next.CreatedAt)) {
			next = j
		}
	}
	if next == nil {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	next.Status = model.QueueJobProcessing
	next.StartedAt = &now
	cp := *next
	return &cp, nil
}

func (m *memQueueJobRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memQueueJobRepo) DeleteTerminalFailed(_ context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, j := range m.jobs {
		if j.Status == model.QueueJobFailed && j.Attempts >= j.MaxAttempts {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

func (m *memQueueJobRepo) CountByStatus(_ context.Context, _ repository.Tx) (map[model.QueueJobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.QueueJobStatus]int)
	for _, j := range m.jobs {
		out[j.Status]++
	}
	return out, nil
}

// ---- classifier ----

type mockClassifier struct {
	ClassifyFunc func(ctx context.Context, posting adapter.PostingText) (*model.AnalysisVerdict, error)

	mu    sync.Mutex
	calls int
}

func (m *mockClassifier) Classify(ctx context.Context, posting adapter.PostingText) (*model.AnalysisVerdict, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, posting)
	}
	return &model.AnalysisVerdict{
		UsesTool:     false,
		ToolDetected: model.ToolNone,
		SignalType:   model.SignalNone,
		Confidence:   model.ConfidenceLow,
	}, nil
}

func (m *mockClassifier) CountTokens(_ context.Context, _ adapter.PostingText) (int, error) {
	return 0, nil
}

func (m *mockClassifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// compile-time interface checks for the mocks
var (
	_ repository.PostingRepository  = (*memPostingRepo)(nil)
	_ repository.CompanyRepository  = (*memCompanyRepo)(nil)
	_ repository.QueueJobRepository = (*memQueueJobRepo)(nil)
	_ repository.TransactionManager = (*mockTxManager)(nil)
	_ adapter.Classifier            = (*mockClassifier)(nil)
)
