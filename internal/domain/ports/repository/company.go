package repository

import (
	"context"
	"time"

	"salestool-radar/internal/domain/model"
)

type CompanyRepository interface {
	Save(ctx context.Context, tx Tx, c *model.IdentifiedCompany) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.IdentifiedCompany, error)

	// FindActiveByNormalizedName is the dedup fast path. Returns
	// domain.ErrNotFound when no active record carries the name.
	FindActiveByNormalizedName(ctx context.Context, tx Tx, normalized string) (*model.IdentifiedCompany, error)

	// ListActive returns all non-merged records ordered by identified_at
	// ascending, which keeps similarity-scan tie-breaking stable.
	ListActive(ctx context.Context, tx Tx) ([]*model.IdentifiedCompany, error)

	// ReassignDependents repoints notes and job-source links from one
	// company to another. Called inside the merge transaction.
	ReassignDependents(ctx context.Context, tx Tx, fromID, toID string) error

	// MarkMerged deactivates a duplicate by setting merged_into.
	MarkMerged(ctx context.Context, tx Tx, id, primaryID string) error

	SetLeadStatus(ctx context.Context, tx Tx, id string, generated bool, at time.Time) error

	CountActive(ctx context.Context, tx Tx) (int, error)
	CountMerged(ctx context.Context, tx Tx) (int, error)
}
