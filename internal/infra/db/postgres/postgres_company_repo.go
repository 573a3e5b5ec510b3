package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/repository"
)

var _ repository.CompanyRepository = (*companyRepo)(nil)

type companyRepo struct {
	pool *pgxpool.Pool
}

func NewCompanyRepo(pool *pgxpool.Pool) *companyRepo {
	return &companyRepo{pool: pool}
}

const companyColumns = `
id, raw_name, normalized_name, tool_detected, signal_type, confidence, context,
source_job_id, identified_at, leads_generated, leads_generated_at, merged_into`

func (r *companyRepo) Save(ctx context.Context, tx repository.Tx, c *model.IdentifiedCompany) error {
	const q = `
INSERT INTO identified_companies (
  id, raw_name, normalized_name, tool_detected, signal_type, confidence, context,
  source_job_id, identified_at, leads_generated, leads_generated_at, merged_into
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  tool_detected = EXCLUDED.tool_detected,
  signal_type = EXCLUDED.signal_type,
  confidence = EXCLUDED.confidence,
  context = EXCLUDED.context,
  leads_generated = EXCLUDED.leads_generated,
  leads_generated_at = EXCLUDED.leads_generated_at,
  merged_into = EXCLUDED.merged_into;`

	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.RawName, c.NormalizedName, c.ToolDetected, c.SignalType, c.Confidence, c.Context,
		c.SourceJobID, c.IdentifiedAt, c.LeadsGenerated, c.LeadsGeneratedAt, c.MergedInto)
	return err
}

func (r *companyRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.IdentifiedCompany, error) {
	q := `SELECT ` + companyColumns + ` FROM identified_companies WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanCompany(row)
}

func (r *companyRepo) FindActiveByNormalizedName(ctx context.Context, tx repository.Tx, normalized string) (*model.IdentifiedCompany, error) {
	q := `SELECT ` + companyColumns + `
  FROM identified_companies
 WHERE normalized_name = $1 AND merged_into IS NULL;`
	row, err := pickRow(ctx, r.pool, tx, q, normalized)
	if err != nil {
		return nil, err
	}
	return scanCompany(row)
}

func (r *companyRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.IdentifiedCompany, error) {
	q := `SELECT ` + companyColumns + `
  FROM identified_companies
 WHERE merged_into IS NULL
 ORDER BY identified_at ASC;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.IdentifiedCompany
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *companyRepo) ReassignDependents(ctx context.Context, tx repository.Tx, fromID, toID string) error {
	if _, err := execSQL(ctx, r.pool, tx,
		`UPDATE company_notes SET company_id = $2 WHERE company_id = $1;`, fromID, toID); err != nil {
		return fmt.Errorf("reassign notes: %w", err)
	}
	// Source links may collide when both records saw the same posting;
	// the duplicate link is dropped rather than duplicated.
	if _, err := execSQL(ctx, r.pool, tx, `
UPDATE company_sources cs SET company_id = $2
 WHERE cs.company_id = $1
   AND NOT EXISTS (
     SELECT 1 FROM company_sources d
      WHERE d.company_id = $2 AND d.job_posting_id = cs.job_posting_id);`, fromID, toID); err != nil {
		return fmt.Errorf("reassign sources: %w", err)
	}
	if _, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM company_sources WHERE company_id = $1;`, fromID); err != nil {
		return fmt.Errorf("drop stale sources: %w", err)
	}
	return nil
}

func (r *companyRepo) MarkMerged(ctx context.Context, tx repository.Tx, id, primaryID string) error {
	const q = `
UPDATE identified_companies SET merged_into = $2
 WHERE id = $1 AND merged_into IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, primaryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *companyRepo) SetLeadStatus(ctx context.Context, tx repository.Tx, id string, generated bool, at time.Time) error {
	const q = `
UPDATE identified_companies
   SET leads_generated = $2,
       leads_generated_at = CASE WHEN $2 THEN $3 ELSE NULL END
 WHERE id = $1 AND merged_into IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, generated, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *companyRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM identified_companies WHERE merged_into IS NULL;`)
}

func (r *companyRepo) CountMerged(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM identified_companies WHERE merged_into IS NOT NULL;`)
}

func (r *companyRepo) count(ctx context.Context, tx repository.Tx, q string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return n, nil
}

func scanCompany(row pgx.Row) (*model.IdentifiedCompany, error) {
	var c model.IdentifiedCompany
	var tool, signal, confidence string
	err := row.Scan(
		&c.ID, &c.RawName, &c.NormalizedName, &tool, &signal, &confidence, &c.Context,
		&c.SourceJobID, &c.IdentifiedAt, &c.LeadsGenerated, &c.LeadsGeneratedAt, &c.MergedInto)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.ToolDetected = model.Tool(tool)
	c.SignalType = model.SignalType(signal)
	c.Confidence = model.Confidence(confidence)
	return &c, nil
}
