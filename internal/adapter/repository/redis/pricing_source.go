package redis

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

const pricingSnapshotKey = "pricing:snapshot"

// PricingSource fronts another PricingConfigSource with a short-lived Redis
// copy. A Redis failure falls through to the wrapped source.
type PricingSource struct {
	next   usecase.PricingConfigSource
	cache  *Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewPricingSource creates a PricingSource. A non-positive ttl disables
// caching.
func NewPricingSource(next usecase.PricingConfigSource, cache *Cache, ttl time.Duration, logger zerolog.Logger) *PricingSource {
	return &PricingSource{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "pricing_cache").Logger(),
	}
}

type cachedOverride struct {
	Route       string `json:"route"`
	ServiceCode string `json:"service_code"`
	Price       string `json:"price"`
}

type cachedPricing struct {
	MarkupPercentage decimal.Decimal  `json:"markup_percentage"`
	ExchangeRate     decimal.Decimal  `json:"exchange_rate"`
	Overrides        []cachedOverride `json:"overrides"`
}

// Snapshot returns the cached configuration or reads through on a miss.
func (s *PricingSource) Snapshot(ctx context.Context) (*domain.PricingConfig, error) {
	if s.ttl <= 0 {
		return s.next.Snapshot(ctx)
	}

	var cached cachedPricing
	hit, err := s.cache.Load(ctx, pricingSnapshotKey, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("pricing cache read failed")
	}
	if hit {
		return cached.config(), nil
	}

	cfg, err := s.next.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Store(ctx, pricingSnapshotKey, newCachedPricing(cfg), s.ttl); err != nil {
		s.logger.Warn().Err(err).Msg("pricing cache write failed")
	}

	return cfg, nil
}

// Invalidate drops the cached snapshot.
func (s *PricingSource) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, pricingSnapshotKey)
}

func newCachedPricing(cfg *domain.PricingConfig) cachedPricing {
	out := cachedPricing{
		MarkupPercentage: cfg.MarkupPercentage,
		ExchangeRate:     cfg.ExchangeRate,
		Overrides:        make([]cachedOverride, 0, len(cfg.Overrides)),
	}
	for key, price := range cfg.Overrides {
		out.Overrides = append(out.Overrides, cachedOverride{
			Route:       key.Route,
			ServiceCode: key.ServiceCode,
			Price:       price,
		})
	}
	return out
}

func (c cachedPricing) config() *domain.PricingConfig {
	overrides := make(domain.PriceOverrides, len(c.Overrides))
	for _, o := range c.Overrides {
		overrides[domain.NewRouteService(o.Route, o.ServiceCode)] = o.Price
	}

	return &domain.PricingConfig{
		MarkupPercentage: c.MarkupPercentage,
		ExchangeRate:     c.ExchangeRate,
		Overrides:        overrides,
	}
}
