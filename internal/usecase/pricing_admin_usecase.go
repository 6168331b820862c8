package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

// PricingAdminUseCase applies operator changes to markup, exchange rate and
// overrides. Every change drops the cached snapshot so quotes pick it up on
// the next read instead of after the cache TTL.
type PricingAdminUseCase struct {
	store  PricingSettingsStore
	cache  PricingCache
	audit  auditor
	logger zerolog.Logger
}

// NewPricingAdminUseCase creates a new PricingAdminUseCase. cache may be nil
// when snapshots are not cached.
func NewPricingAdminUseCase(
	store PricingSettingsStore,
	cache PricingCache,
	auditRepo AuditRepository,
	idGen IDGenerator,
	logger zerolog.Logger,
) *PricingAdminUseCase {
	return &PricingAdminUseCase{
		store:  store,
		cache:  cache,
		audit:  auditor{repo: auditRepo, idGen: idGen},
		logger: logger,
	}
}

// PricingChange is the audited record of one settings write.
type PricingChange struct {
	Setting     string           `json:"setting"`
	Route       string           `json:"route,omitempty"`
	ServiceCode string           `json:"service_code,omitempty"`
	Value       *decimal.Decimal `json:"value,omitempty"`
	Removed     bool             `json:"removed,omitempty"`
}

// SetMarkup sets the percentage added to wholesale costs. Zero resells at
// cost.
func (uc *PricingAdminUseCase) SetMarkup(ctx context.Context, pct decimal.Decimal) (*PricingChange, error) {
	if pct.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	change := &PricingChange{Setting: "markup_percentage", Value: &pct}
	if err := uc.apply(ctx, "markup_percentage", change, func() error {
		return uc.store.SetMarkupPercentage(ctx, pct)
	}); err != nil {
		return nil, err
	}
	return change, nil
}

// SetExchangeRate sets how many secondary units one primary unit buys.
func (uc *PricingAdminUseCase) SetExchangeRate(ctx context.Context, rate decimal.Decimal) (*PricingChange, error) {
	if !rate.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	change := &PricingChange{Setting: "exchange_rate", Value: &rate}
	if err := uc.apply(ctx, "exchange_rate", change, func() error {
		return uc.store.SetExchangeRate(ctx, rate)
	}); err != nil {
		return nil, err
	}
	return change, nil
}

// SetOverride fixes the resale price of a route/service pair. The price is
// stored in cents; zero makes the pair free.
func (uc *PricingAdminUseCase) SetOverride(ctx context.Context, route, serviceCode string, price decimal.Decimal) (*PricingChange, error) {
	key, err := overrideKey(route, serviceCode)
	if err != nil {
		return nil, err
	}
	price = domain.Round2(price)
	if price.IsNegative() || price.GreaterThan(decimal.RequireFromString(domain.MaxRentalPrice)) {
		return nil, domain.ErrInvalidAmount
	}

	change := &PricingChange{Setting: "override", Route: key.Route, ServiceCode: key.ServiceCode, Value: &price}
	if err := uc.apply(ctx, key.Route+"/"+key.ServiceCode, change, func() error {
		return uc.store.SetOverride(ctx, key.Route, key.ServiceCode, price)
	}); err != nil {
		return nil, err
	}
	return change, nil
}

// DeleteOverride returns a pair to markup pricing.
func (uc *PricingAdminUseCase) DeleteOverride(ctx context.Context, route, serviceCode string) (*PricingChange, error) {
	key, err := overrideKey(route, serviceCode)
	if err != nil {
		return nil, err
	}

	change := &PricingChange{Setting: "override", Route: key.Route, ServiceCode: key.ServiceCode, Removed: true}
	if err := uc.apply(ctx, key.Route+"/"+key.ServiceCode, change, func() error {
		found, err := uc.store.DeleteOverride(ctx, key.Route, key.ServiceCode)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrOverrideNotFound
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return change, nil
}

func overrideKey(route, serviceCode string) (domain.RouteService, error) {
	key := domain.NewRouteService(route, serviceCode)
	if key.Route == "" {
		return key, domain.ErrInvalidRoute
	}
	if key.ServiceCode == "" {
		return key, domain.ErrInvalidService
	}
	return key, nil
}

// apply runs write, audits it and drops the cached snapshot. A failed
// invalidation is logged, not returned: the write is already durable and the
// cache expires on its own.
func (uc *PricingAdminUseCase) apply(ctx context.Context, resourceID string, change *PricingChange, write func() error) error {
	err := write()
	if auditErr := uc.audit.record(ctx, nil, domain.AuditActionPricingUpdate, "pricing", resourceID, change, err); auditErr != nil {
		return fmt.Errorf("failed to audit pricing update: %w", auditErr)
	}
	if err != nil {
		return err
	}

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx); err != nil {
			uc.logger.Warn().Err(err).Str("setting", change.Setting).Msg("failed to invalidate pricing cache")
		}
	}

	uc.logger.Info().
		Str("setting", change.Setting).
		Str("resource", resourceID).
		Bool("removed", change.Removed).
		Msg("pricing updated")
	return nil
}
