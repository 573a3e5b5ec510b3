package repository

import (
	"context"

	"salestool-radar/internal/domain/model"
)

type QueueJobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.QueueJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.QueueJob, error)

	// ListByStatus orders by priority descending, then created_at ascending.
	ListByStatus(ctx context.Context, tx Tx, status model.QueueJobStatus) ([]*model.QueueJob, error)

	// FetchAndMarkProcessing atomically claims the next pending job and
	// marks it processing so no other worker picks it up.
	FetchAndMarkProcessing(ctx context.Context) (*model.QueueJob, error)

	Delete(ctx context.Context, tx Tx, id string) error

	// DeleteTerminalFailed bulk-removes failed jobs whose attempt budget
	// is exhausted. Retry-eligible and active jobs are untouched.
	DeleteTerminalFailed(ctx context.Context, tx Tx) (int, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.QueueJobStatus]int, error)
}
