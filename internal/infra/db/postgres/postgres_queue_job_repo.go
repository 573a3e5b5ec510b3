package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/repository"
)

var _ repository.QueueJobRepository = (*queueJobRepo)(nil)

type queueJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewQueueJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *queueJobRepo {
	return &queueJobRepo{pool: pool, tm: tm}
}

const queueJobColumns = `
id, type, payload, status, priority, attempts, max_attempts, last_error,
created_at, started_at, completed_at`

func (r *queueJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.QueueJob) error {
	const q = `
INSERT INTO queue_jobs (
  id, type, payload, status, priority, attempts, max_attempts, last_error,
  created_at, started_at, completed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  attempts = EXCLUDED.attempts,
  last_error = EXCLUDED.last_error,
  started_at = EXCLUDED.started_at,
  completed_at = EXCLUDED.completed_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.Type, []byte(job.Payload), job.Status, job.Priority, job.Attempts, job.MaxAttempts,
		job.LastError, job.CreatedAt, job.StartedAt, job.CompletedAt)
	return err
}

func (r *queueJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.QueueJob, error) {
	q := `SELECT ` + queueJobColumns + ` FROM queue_jobs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanQueueJob(row)
}

func (r *queueJobRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.QueueJobStatus) ([]*model.QueueJob, error) {
	q := `SELECT ` + queueJobColumns + `
  FROM queue_jobs
 WHERE status = $1
 ORDER BY priority DESC, created_at ASC;`
	rows, err := pickRows(ctx, r.pool, tx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.QueueJob
	for rows.Next() {
		job, err := scanQueueJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// FetchAndMarkProcessing claims the next pending job inside one
// transaction so concurrent runners never double-dispatch.
func (r *queueJobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.QueueJob, error) {
	var job *model.QueueJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		q := `SELECT ` + queueJobColumns + `
  FROM queue_jobs
 WHERE status = 'pending'
 ORDER BY priority DESC, created_at ASC
 LIMIT 1
 FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, q)
		if err != nil {
			return err
		}
		claimed, err := scanQueueJob(row)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return domain.ErrReadDatabaseRow
		}

		now := time.Now()
		claimed.Status = model.QueueJobProcessing
		claimed.StartedAt = &now
		if err := r.Save(ctx, tx, claimed); err != nil {
			return err
		}
		job = claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *queueJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM queue_jobs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *queueJobRepo) DeleteTerminalFailed(ctx context.Context, tx repository.Tx) (int, error) {
	tag, err := execSQL(ctx, r.pool, tx,
		`DELETE FROM queue_jobs WHERE status = 'failed' AND attempts >= max_attempts;`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *queueJobRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.QueueJobStatus]int, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT status, COUNT(*) FROM queue_jobs GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.QueueJobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count queue jobs: %w", err)
		}
		counts[model.QueueJobStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanQueueJob(row pgx.Row) (*model.QueueJob, error) {
	var job model.QueueJob
	var status string
	var payload []byte
	err := row.Scan(
		&job.ID, &job.Type, &payload, &status, &job.Priority, &job.Attempts, &job.MaxAttempts,
		&job.LastError, &job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = model.QueueJobStatus(status)
	job.Payload = payload
	return &job, nil
}
