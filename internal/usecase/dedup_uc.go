package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/repository"
	"salestool-radar/internal/infra/metrics"
)

// Compile-time check
var _ DedupUseCase = (*dedupUC)(nil)

type DedupUseCase interface {
	Normalize(name string) string
	Check(ctx context.Context, name string) (*model.DedupResult, error)
	FindSimilar(ctx context.Context, name string, threshold float64) ([]model.SimilarityMatch, error)
	ResolveCompany(ctx context.Context, posting *model.JobPosting, verdict *model.AnalysisVerdict) (*model.IdentifiedCompany, bool, error)
	MergeDuplicates(ctx context.Context, primaryID string, duplicateIDs []string) ([]model.MergeOutcome, error)
	Stats(ctx context.Context) (*model.DedupStats, error)
}

type dedupUC struct {
	companies repository.CompanyRepository
	tm        repository.TransactionManager
	threshold float64
	log       *zerolog.Logger
}

func NewDedupUseCase(companies repository.CompanyRepository, tm repository.TransactionManager, threshold float64, logger *zerolog.Logger) *dedupUC {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.7
	}
	l := logger.With().Str("component", "dedup").Logger()
	return &dedupUC{companies: companies, tm: tm, threshold: threshold, log: &l}
}

// legalSuffixes are trailing tokens stripped during normalization, after
// punctuation has already been removed ("Inc." arrives here as "inc").
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"corp":         true,
	"corporation":  true,
	"ltd":          true,
	"limited":      true,
	"co":           true,
	"company":      true,
	"gmbh":         true,
}

// Normalize lowercases, strips punctuation, drops trailing legal suffixes
// and collapses whitespace. Pure, deterministic and idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func (d *dedupUC) Normalize(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r > 127: // keep non-ASCII letters as-is
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	for len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// Check resolves a raw name against the registry: exact normalized match
// first (index lookup), similarity scan only when that misses.
func (d *dedupUC) Check(ctx context.Context, name string) (*model.DedupResult, error) {
	normalized := d.Normalize(name)
	if normalized == "" {
		return nil, domain.ErrInvalidArgument
	}

	existing, err := d.companies.FindActiveByNormalizedName(ctx, repository.NoTX, normalized)
	if err == nil {
		return &model.DedupResult{IsDuplicate: true, ExactMatch: true, MatchedID: existing.ID, Score: 1.0}, nil
	}
	if err != domain.ErrNotFound {
		return nil, fmt.Errorf("dedup exact lookup: %w", err)
	}

	matches, err := d.FindSimilar(ctx, name, d.threshold)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &model.DedupResult{IsDuplicate: false}, nil
	}
	best := matches[0]
	return &model.DedupResult{IsDuplicate: true, MatchedID: best.ID, Score: best.Score}, nil
}

// FindSimilar scores the normalized name against every active company.
// Results are sorted score descending; ties go to the oldest record so
// repeated queries stay stable.
func (d *dedupUC) FindSimilar(ctx context.Context, name string, threshold float64) ([]model.SimilarityMatch, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = d.threshold
	}
	normalized := d.Normalize(name)
	if normalized == "" {
		return nil, domain.ErrInvalidArgument
	}

	active, err := d.companies.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, fmt.Errorf("dedup scan: %w", err)
	}

	matches := make([]model.SimilarityMatch, 0, 4)
	for _, c := range active {
		score := similarity(normalized, c.NormalizedName)
		if score >= threshold {
			matches = append(matches, model.SimilarityMatch{
				ID:           c.ID,
				RawName:      c.RawName,
				Score:        score,
				IdentifiedAt: c.IdentifiedAt,
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].IdentifiedAt.Before(matches[j].IdentifiedAt)
	})
	return matches, nil
}

// ResolveCompany upserts the registry entry for a positive verdict. The
// bool result reports whether a new record was created.
func (d *dedupUC) ResolveCompany(ctx context.Context, posting *model.JobPosting, verdict *model.AnalysisVerdict) (*model.IdentifiedCompany, bool, error) {
	if posting == nil || verdict == nil || !verdict.UsesTool {
		return nil, false, domain.ErrInvalidArgument
	}

	result, err := d.Check(ctx, posting.Company)
	if err != nil {
		return nil, false, err
	}
	if result.IsDuplicate {
		existing, err := d.companies.FindByID(ctx, repository.NoTX, result.MatchedID)
		if err != nil {
			return nil, false, fmt.Errorf("dedup matched company vanished: %w", err)
		}
		metrics.IncDedupResolution("duplicate")
		d.log.Debug().Str("company", posting.Company).Str("matched_id", existing.ID).
			Bool("exact", result.ExactMatch).Msg("posting resolved to existing company")
		return existing, false, nil
	}

	c := &model.IdentifiedCompany{
		ID:             uuid.NewString(),
		RawName:        strings.TrimSpace(posting.Company),
		NormalizedName: d.Normalize(posting.Company),
		ToolDetected:   verdict.ToolDetected,
		SignalType:     verdict.SignalType,
		Confidence:     verdict.Confidence,
		Context:        verdict.Context,
		SourceJobID:    posting.ID,
		IdentifiedAt:   time.Now(),
	}
	if err := d.companies.Save(ctx, repository.NoTX, c); err != nil {
		return nil, false, fmt.Errorf("save company: %w", err)
	}
	metrics.IncDedupResolution("new")
	d.log.Info().Str("company_id", c.ID).Str("company", c.RawName).
		Str("tool", string(c.ToolDetected)).Msg("new company identified")
	return c, true, nil
}

// MergeDuplicates folds each duplicate into the primary independently:
// dependents are repointed and merged_into is set inside one transaction
// per duplicate, so a failing sibling leaves the others merged.
func (d *dedupUC) MergeDuplicates(ctx context.Context, primaryID string, duplicateIDs []string) ([]model.MergeOutcome, error) {
	primary, err := d.companies.FindByID(ctx, repository.NoTX, primaryID)
	if err != nil {
		return nil, fmt.Errorf("primary company: %w", err)
	}
	if !primary.Active() {
		return nil, domain.ErrCompanyMerged
	}

	outcomes := make([]model.MergeOutcome, 0, len(duplicateIDs))
	for _, dupID := range duplicateIDs {
		outcome := model.MergeOutcome{DuplicateID: dupID}
		if err := d.mergeOne(ctx, primary.ID, dupID); err != nil {
			outcome.Error = err.Error()
			metrics.IncMerge("failed")
			d.log.Warn().Err(err).Str("primary_id", primaryID).Str("duplicate_id", dupID).Msg("merge failed")
		} else {
			outcome.Merged = true
			metrics.IncMerge("merged")
			d.log.Info().Str("primary_id", primaryID).Str("duplicate_id", dupID).Msg("duplicate merged")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (d *dedupUC) mergeOne(ctx context.Context, primaryID, dupID string) error {
	if dupID == primaryID {
		return domain.ErrInvalidArgument
	}
	dup, err := d.companies.FindByID(ctx, repository.NoTX, dupID)
	if err != nil {
		return err
	}
	if !dup.Active() {
		return domain.ErrCompanyMerged
	}
	return d.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := d.companies.ReassignDependents(ctx, tx, dupID, primaryID); err != nil {
			return err
		}
		return d.companies.MarkMerged(ctx, tx, dupID, primaryID)
	})
}

func (d *dedupUC) Stats(ctx context.Context) (*model.DedupStats, error) {
	active, err := d.companies.CountActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	merged, err := d.companies.CountMerged(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	stats := &model.DedupStats{TotalActive: active, TotalMerged: merged}
	if total := active + merged; total > 0 {
		stats.DedupRate = float64(merged) / float64(total)
	}
	return stats, nil
}
