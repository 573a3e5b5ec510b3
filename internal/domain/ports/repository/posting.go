package repository

import (
	"context"
	"time"

	"salestool-radar/internal/domain/model"
)

type PostingRepository interface {
	Save(ctx context.Context, tx Tx, p *model.JobPosting) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.JobPosting, error)

	// FetchUnprocessed returns up to limit postings with processed=false,
	// oldest scraped_at first, so the backlog drains fairly.
	FetchUnprocessed(ctx context.Context, tx Tx, limit int) ([]*model.JobPosting, error)

	// MarkProcessed flips processed to true and stamps analyzed_at.
	// The flag is monotonic; there is no way back.
	MarkProcessed(ctx context.Context, tx Tx, id string, analyzedAt time.Time) error

	CountUnprocessed(ctx context.Context, tx Tx) (int, error)
}
