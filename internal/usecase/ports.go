package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// NumberIssuer is the upstream SMS-activation provider.
type NumberIssuer interface {
	// Quote returns the current wholesale cost for a route/service pair.
	Quote(ctx context.Context, route, serviceCode string) (decimal.Decimal, error)
	// Issue buys a number, refusing if the wholesale cost exceeds maxPrice.
	Issue(ctx context.Context, route, serviceCode string, maxPrice decimal.Decimal) (*domain.IssuedNumber, error)
	CheckDelivery(ctx context.Context, issuerID string) (*domain.Delivery, error)
	// Release asks the issuer to cancel the number. Best effort.
	Release(ctx context.Context, issuerID string) (bool, error)
}

// PricingConfigSource reads the externally managed markup, exchange rate
// and override table. Callers read it per pricing decision.
type PricingConfigSource interface {
	Snapshot(ctx context.Context) (*domain.PricingConfig, error)
}
