package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

// PricingUseCase produces user-facing prices from the issuer's wholesale
// cost and the current pricing configuration.
type PricingUseCase struct {
	issuer   NumberIssuer
	config   PricingConfigSource
	signer   QuoteSigner
	quoteTTL time.Duration
}

// NewPricingUseCase creates a new PricingUseCase.
func NewPricingUseCase(issuer NumberIssuer, config PricingConfigSource) *PricingUseCase {
	return &PricingUseCase{
		issuer: issuer,
		config: config,
	}
}

// WithQuoteSigner makes Quote attach a token that Acquire can redeem for
// the quoted price until ttl passes.
func (uc *PricingUseCase) WithQuoteSigner(signer QuoteSigner, ttl time.Duration) *PricingUseCase {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	uc.signer = signer
	uc.quoteTTL = ttl
	return uc
}

// Quote is a priced offer for a route/service pair.
type Quote struct {
	Route            string
	ServiceCode      string
	WholesaleCost    decimal.Decimal
	Price            decimal.Decimal
	PriceSecondary   decimal.Decimal
	IsOverride       bool
	MarkupPercentage decimal.Decimal
	ExchangeRate     decimal.Decimal
	QuotedAt         time.Time
	// Token and ExpiresAt are set when quotes are signed.
	Token     string
	ExpiresAt time.Time
}

// Quote prices a route/service pair for display and, when a signer is
// configured, signs the price.
func (uc *PricingUseCase) Quote(ctx context.Context, route, serviceCode string) (*Quote, error) {
	quote, err := uc.Resolve(ctx, route, serviceCode)
	if err != nil {
		return nil, err
	}
	if uc.signer == nil {
		return quote, nil
	}

	quote.ExpiresAt = quote.QuotedAt.Add(uc.quoteTTL)
	quote.Token, err = uc.signer.SignQuote(domain.SignedQuote{
		Route:       quote.Route,
		ServiceCode: quote.ServiceCode,
		Price:       quote.Price,
		ExpiresAt:   quote.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("sign quote: %w", err)
	}
	return quote, nil
}

// Resolve prices a route/service pair. The pricing configuration is read
// on every call so markup changes apply immediately.
func (uc *PricingUseCase) Resolve(ctx context.Context, route, serviceCode string) (*Quote, error) {
	route, serviceCode, err := normalizeRouteService(route, serviceCode)
	if err != nil {
		return nil, err
	}

	cfg, err := uc.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	cost, err := uc.issuer.Quote(ctx, route, serviceCode)
	if err != nil {
		return nil, err
	}

	return PriceQuote(route, serviceCode, cost, cfg), nil
}

// VerifyQuote returns the price a quote token vouches for. The token must
// have been issued for route and serviceCode.
func (uc *PricingUseCase) VerifyQuote(token, route, serviceCode string) (decimal.Decimal, error) {
	if uc.signer == nil {
		return decimal.Zero, domain.ErrInvalidQuote
	}

	quote, err := uc.signer.VerifyQuote(token)
	if err != nil {
		return decimal.Zero, err
	}
	if !quote.Matches(route, serviceCode) {
		return decimal.Zero, fmt.Errorf("%w: issued for %s/%s", domain.ErrInvalidQuote, quote.Route, quote.ServiceCode)
	}
	return domain.Round2(quote.Price), nil
}

func (uc *PricingUseCase) snapshot(ctx context.Context) (*domain.PricingConfig, error) {
	cfg, err := uc.config.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPricingConfigUnavailable, err)
	}
	if cfg == nil {
		return nil, domain.ErrPricingConfigUnavailable
	}
	return cfg, nil
}

// PriceQuote resolves the price of a route/service pair against cfg.
func PriceQuote(route, serviceCode string, wholesaleCost decimal.Decimal, cfg *domain.PricingConfig) *Quote {
	price, isOverride := domain.ResolvePrice(route, serviceCode, wholesaleCost, cfg.MarkupPercentage, cfg.Overrides)

	q := &Quote{
		Route:            route,
		ServiceCode:      serviceCode,
		WholesaleCost:    wholesaleCost,
		Price:            price,
		IsOverride:       isOverride,
		MarkupPercentage: cfg.MarkupPercentage,
		ExchangeRate:     cfg.ExchangeRate,
		QuotedAt:         time.Now().UTC(),
	}
	if cfg.ExchangeRate.IsPositive() {
		q.PriceSecondary = domain.ConvertToSecondary(price, cfg.ExchangeRate)
	}
	return q
}

func normalizeRouteService(route, serviceCode string) (string, string, error) {
	route = strings.ToLower(strings.TrimSpace(route))
	serviceCode = strings.ToLower(strings.TrimSpace(serviceCode))

	if err := domain.ValidateRoute(route); err != nil {
		return "", "", err
	}
	if err := domain.ValidateServiceCode(serviceCode); err != nil {
		return "", "", err
	}
	return route, serviceCode, nil
}
