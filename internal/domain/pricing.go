package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RouteService keys the manual price override table.
type RouteService struct {
	Route       string
	ServiceCode string
}

// NewRouteService builds a normalized override key.
func NewRouteService(route, serviceCode string) RouteService {
	return RouteService{
		Route:       strings.ToLower(strings.TrimSpace(route)),
		ServiceCode: strings.ToLower(strings.TrimSpace(serviceCode)),
	}
}

// PriceOverrides maps a route/service pair to a fixed resale price as
// configured. Values are kept raw so a malformed entry can fall through to
// markup pricing instead of failing the lookup.
type PriceOverrides map[RouteService]string

// Lookup returns a usable override for the pair, if one exists. Overrides
// are rounded to cents like every other price.
func (o PriceOverrides) Lookup(route, serviceCode string) (decimal.Decimal, bool) {
	raw, ok := o[NewRouteService(route, serviceCode)]
	if !ok {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || price.IsNegative() {
		return decimal.Zero, false
	}
	return Round2(price), true
}

// PricingConfig is a point-in-time read of the externally managed pricing
// settings.
type PricingConfig struct {
	MarkupPercentage decimal.Decimal
	ExchangeRate     decimal.Decimal
	Overrides        PriceOverrides
}

// ResolvePrice returns the resale price for a route/service pair. An
// override wins when present and well formed; otherwise the wholesale cost
// is marked up by markupPct and rounded to cents.
func ResolvePrice(route, serviceCode string, wholesaleCost, markupPct decimal.Decimal, overrides PriceOverrides) (decimal.Decimal, bool) {
	if price, ok := overrides.Lookup(route, serviceCode); ok {
		return price, true
	}

	factor := decimal.NewFromInt(1).Add(markupPct.Div(hundred))
	return Round2(wholesaleCost.Mul(factor)), false
}

// SignedQuote is the price a caller was shown for a route/service pair,
// as vouched for by a quote token.
type SignedQuote struct {
	Route       string
	ServiceCode string
	Price       decimal.Decimal
	ExpiresAt   time.Time
}

// Matches reports whether the quote was issued for route and serviceCode.
func (q *SignedQuote) Matches(route, serviceCode string) bool {
	return NewRouteService(q.Route, q.ServiceCode) == NewRouteService(route, serviceCode)
}
