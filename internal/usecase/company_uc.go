package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/repository"
)

// Compile-time check
var _ CompanyUseCase = (*companyUC)(nil)

// CompanyUseCase covers registry reads and the lead-status mutation.
type CompanyUseCase interface {
	Get(ctx context.Context, id string) (*model.IdentifiedCompany, error)
	ListActive(ctx context.Context) ([]*model.IdentifiedCompany, error)
	SetLeadStatus(ctx context.Context, id string, generated bool) (*model.IdentifiedCompany, error)
}

type companyUC struct {
	companies repository.CompanyRepository
	log       *zerolog.Logger
}

func NewCompanyUseCase(companies repository.CompanyRepository, logger *zerolog.Logger) *companyUC {
	l := logger.With().Str("component", "companies").Logger()
	return &companyUC{companies: companies, log: &l}
}

func (c *companyUC) Get(ctx context.Context, id string) (*model.IdentifiedCompany, error) {
	return c.companies.FindByID(ctx, repository.NoTX, id)
}

func (c *companyUC) ListActive(ctx context.Context) ([]*model.IdentifiedCompany, error) {
	return c.companies.ListActive(ctx, repository.NoTX)
}

func (c *companyUC) SetLeadStatus(ctx context.Context, id string, generated bool) (*model.IdentifiedCompany, error) {
	now := time.Now()
	if err := c.companies.SetLeadStatus(ctx, repository.NoTX, id, generated, now); err != nil {
		return nil, err
	}
	c.log.Info().Str("company_id", id).Bool("generated", generated).Msg("lead status updated")
	return c.companies.FindByID(ctx, repository.NoTX, id)
}
