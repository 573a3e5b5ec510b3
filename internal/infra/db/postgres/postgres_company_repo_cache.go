package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/domain/ports/repository"
	"salestool-radar/internal/infra/metrics"
	red "salestool-radar/internal/infra/redis"
)

var _ repository.CompanyRepository = (*companyRepoCacheDecorator)(nil)

// companyRepoCacheDecorator caches the normalized-name lookup, which is
// the dedup fast path hit once per classified posting. Write paths
// invalidate both keys for the record.
type companyRepoCacheDecorator struct {
	inner repository.CompanyRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewCompanyRepoCacheDecorator(inner repository.CompanyRepository, cache red.RedisClient, ttl time.Duration) repository.CompanyRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &companyRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func companyIDKey(id string) string     { return fmt.Sprintf("company:id:%s", id) }
func companyNameKey(name string) string { return fmt.Sprintf("company:norm:%s", name) }

func (d *companyRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, c *model.IdentifiedCompany) error {
	_ = d.cache.Del(ctx, companyIDKey(c.ID), companyNameKey(c.NormalizedName))
	return d.inner.Save(ctx, tx, c)
}

func (d *companyRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.IdentifiedCompany, error) {
	key := companyIDKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var c model.IdentifiedCompany
		if json.Unmarshal([]byte(val), &c) == nil {
			metrics.IncCacheRequest("company", "hit")
			return &c, nil
		}
	}

	metrics.IncCacheRequest("company", "miss")
	c, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, c)
	return c, nil
}

func (d *companyRepoCacheDecorator) FindActiveByNormalizedName(ctx context.Context, tx repository.Tx, normalized string) (*model.IdentifiedCompany, error) {
	key := companyNameKey(normalized)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var c model.IdentifiedCompany
		if json.Unmarshal([]byte(val), &c) == nil {
			metrics.IncCacheRequest("company", "hit")
			return &c, nil
		}
	}

	metrics.IncCacheRequest("company", "miss")
	c, err := d.inner.FindActiveByNormalizedName(ctx, tx, normalized)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, c)
	return c, nil
}

func (d *companyRepoCacheDecorator) warm(ctx context.Context, c *model.IdentifiedCompany) {
	if c == nil {
		return
	}
	bytes, err := json.Marshal(c)
	if err != nil {
		return
	}
	_ = d.cache.Set(ctx, companyIDKey(c.ID), bytes, d.ttl)
	if c.Active() {
		_ = d.cache.Set(ctx, companyNameKey(c.NormalizedName), bytes, d.ttl)
	}
}

// Merge and lead-status writes must invalidate; the normalized name is
// unknown here, so the record is fetched first.
func (d *companyRepoCacheDecorator) MarkMerged(ctx context.Context, tx repository.Tx, id, primaryID string) error {
	d.invalidate(ctx, tx, id)
	d.invalidate(ctx, tx, primaryID)
	return d.inner.MarkMerged(ctx, tx, id, primaryID)
}

func (d *companyRepoCacheDecorator) SetLeadStatus(ctx context.Context, tx repository.Tx, id string, generated bool, at time.Time) error {
	d.invalidate(ctx, tx, id)
	return d.inner.SetLeadStatus(ctx, tx, id, generated, at)
}

func (d *companyRepoCacheDecorator) invalidate(ctx context.Context, tx repository.Tx, id string) {
	if c, err := d.inner.FindByID(ctx, tx, id); err == nil {
		_ = d.cache.Del(ctx, companyIDKey(id), companyNameKey(c.NormalizedName))
		return
	}
	_ = d.cache.Del(ctx, companyIDKey(id))
}

// Pass-through methods that don't need caching

func (d *companyRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.IdentifiedCompany, error) {
	return d.inner.ListActive(ctx, tx)
}

func (d *companyRepoCacheDecorator) ReassignDependents(ctx context.Context, tx repository.Tx, fromID, toID string) error {
	return d.inner.ReassignDependents(ctx, tx, fromID, toID)
}

func (d *companyRepoCacheDecorator) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	return d.inner.CountActive(ctx, tx)
}

func (d *companyRepoCacheDecorator) CountMerged(ctx context.Context, tx repository.Tx) (int, error) {
	return d.inner.CountMerged(ctx, tx)
}
