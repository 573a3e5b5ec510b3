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

var _ repository.PostingRepository = (*postingRepo)(nil)

type postingRepo struct {
	pool *pgxpool.Pool
}

func NewPostingRepo(pool *pgxpool.Pool) *postingRepo {
	return &postingRepo{pool: pool}
}

func (r *postingRepo) Save(ctx context.Context, tx repository.Tx, p *model.JobPosting) error {
	const q = `
INSERT INTO job_postings (id, company, title, description, scraped_at, processed, analyzed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  company = EXCLUDED.company,
  title = EXCLUDED.title,
  description = EXCLUDED.description;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Company, p.Title, p.Description, p.ScrapedAt, p.Processed, p.AnalyzedAt)
	return err
}

func (r *postingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobPosting, error) {
	const q = `
SELECT id, company, title, description, scraped_at, processed, analyzed_at
  FROM job_postings WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPosting(row)
}

func (r *postingRepo) FetchUnprocessed(ctx context.Context, tx repository.Tx, limit int) ([]*model.JobPosting, error) {
	const q = `
SELECT id, company, title, description, scraped_at, processed, analyzed_at
  FROM job_postings
 WHERE processed = FALSE
 ORDER BY scraped_at ASC
 LIMIT $1;`

	rows, err := pickRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.JobPosting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postingRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string, analyzedAt time.Time) error {
	// processed only ever moves false -> true
	const q = `
UPDATE job_postings SET processed = TRUE, analyzed_at = $2 WHERE id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, analyzedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postingRepo) CountUnprocessed(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM job_postings WHERE processed = FALSE;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count unprocessed: %w", err)
	}
	return n, nil
}

func scanPosting(row pgx.Row) (*model.JobPosting, error) {
	var p model.JobPosting
	err := row.Scan(&p.ID, &p.Company, &p.Title, &p.Description, &p.ScrapedAt, &p.Processed, &p.AnalyzedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
