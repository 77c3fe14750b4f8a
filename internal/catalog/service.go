package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/cache"
	"github.com/aloxstore/storefront/internal/obs"
	"github.com/aloxstore/storefront/internal/pricing"
)

// ProductSource abstracts the Postgres store so the service and its
// consumers can be exercised with fakes.
type ProductSource interface {
	List(ctx context.Context, page, limit int) ([]Product, int64, error)
	ByID(ctx context.Context, id int64) (Product, error)
	ByIDs(ctx context.Context, ids []int64) (map[int64]Product, error)
}

// ListResult contains list data and pagination metadata.
type ListResult struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Service orchestrates catalog reads with a Redis read-through cache.
type Service struct {
	Source ProductSource
	Cache  *cache.JSON
	Logger zerolog.Logger
}

// List returns a page of published products, served from cache when fresh.
func (s *Service) List(ctx context.Context, page, limit int) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	key := fmt.Sprintf("catalog:list:%d:%d", page, limit)

	var cached ListResult
	if ok, err := s.Cache.Get(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}

	items, total, err := s.Source.List(ctx, page, limit)
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{Items: items, Total: total, Page: page, Limit: limit}
	if err := s.Cache.Set(ctx, key, result); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return result, nil
}

// Get returns one published product, served from cache when fresh.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	key := fmt.Sprintf("catalog:product:%d", id)

	var cached Product
	if ok, err := s.Cache.Get(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}

	p, err := s.Source.ByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.Cache.Set(ctx, key, p); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return p, nil
}

// ProductSet resolves the referenced products into pricing input. Ids that
// no longer resolve are counted but not errors; their lines price to zero.
func (s *Service) ProductSet(ctx context.Context, ids []int64) (pricing.ProductSet, error) {
	found, err := s.Source.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	set := make(pricing.ProductSet, len(found))
	for id, p := range found {
		set[id] = pricing.Product{
			Price:     p.PriceCents,
			SalePrice: p.SalePriceCents,
			SaleStart: p.SaleStart,
			SaleEnd:   p.SaleEnd,
			VATRate:   p.VATRatePercent,
			Currency:  p.Currency,
		}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			if obs.PricingDegradedLines != nil {
				obs.PricingDegradedLines.Inc()
			}
			s.Logger.Warn().Int64("product_id", id).Msg("cart references unknown product")
		}
	}
	return set, nil
}
