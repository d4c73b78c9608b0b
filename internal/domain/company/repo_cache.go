package company

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/cache"
	"github.com/wellness/wellness/internal/platform/metrics"
)

const listKey = "companies:all"

// CachedRepository serves company reads from a shared cache holding the
// whole (small) company list. Any cache failure falls through to the wrapped
// repository.
type CachedRepository struct {
	next   Repository
	store  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedRepository(next Repository, store cache.Store, ttl time.Duration, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{next: next, store: store, ttl: ttl, logger: logger}
}

func (r *CachedRepository) List(ctx context.Context) ([]*Company, error) {
	raw, err := r.store.Get(ctx, listKey)
	switch {
	case err == nil:
		var items []*Company
		if jerr := json.Unmarshal(raw, &items); jerr == nil {
			metrics.ObserveCacheLookup("companies", "hit")
			return items, nil
		}
		metrics.ObserveCacheLookup("companies", "corrupt")
	case errors.Is(err, cache.ErrMiss):
		metrics.ObserveCacheLookup("companies", "miss")
	default:
		metrics.ObserveCacheLookup("companies", "error")
		r.logger.Warn().Err(err).Msg("company cache read failed")
	}

	items, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(cachedList(items)); err == nil {
		if err := r.store.Set(ctx, listKey, raw, r.ttl); err != nil {
			r.logger.Warn().Err(err).Msg("company cache write failed")
		}
	}
	return items, nil
}

func (r *CachedRepository) GetByID(ctx context.Context, id int64) (*Company, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range items {
		if c.CompanyID == id {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Company not found")
}

func (r *CachedRepository) GetByName(ctx context.Context, name string) (*Company, error) {
	items, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range items {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Unknown company: %s", name)
}

func (r *CachedRepository) Create(ctx context.Context, c *Company) (bool, error) {
	created, err := r.next.Create(ctx, c)
	if err != nil {
		return false, err
	}
	if created {
		if err := r.store.Delete(ctx, listKey); err != nil {
			r.logger.Warn().Err(err).Msg("company cache invalidation failed")
		}
	}
	return created, nil
}

// cachedList never stores null, so an empty table still reads back as a hit.
func cachedList(items []*Company) []*Company {
	if items == nil {
		return []*Company{}
	}
	return items
}
