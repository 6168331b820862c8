package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

// Pricing setting keys.
const (
	SettingMarkupPercentage = "markup_percentage"
	SettingExchangeRate     = "exchange_rate"
)

// PricingSettingsRepository reads the operator-managed pricing settings and
// override table. It implements usecase.PricingConfigSource.
type PricingSettingsRepository struct {
	db querier
}

// NewPricingSettingsRepository creates a new PricingSettingsRepository.
func NewPricingSettingsRepository(pool *pgxpool.Pool) *PricingSettingsRepository {
	return &PricingSettingsRepository{db: pool}
}

// Snapshot reads markup, exchange rate and overrides.
func (r *PricingSettingsRepository) Snapshot(ctx context.Context) (*domain.PricingConfig, error) {
	settings, err := r.settings(ctx)
	if err != nil {
		return nil, err
	}

	markup, err := parseSetting(settings, SettingMarkupPercentage)
	if err != nil {
		return nil, err
	}
	if markup.IsNegative() {
		return nil, fmt.Errorf("%w: negative markup %s", domain.ErrPricingConfigUnavailable, markup)
	}

	rate, err := parseSetting(settings, SettingExchangeRate)
	if err != nil {
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: exchange rate must be positive", domain.ErrPricingConfigUnavailable)
	}

	overrides, err := r.overrides(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.PricingConfig{
		MarkupPercentage: markup,
		ExchangeRate:     rate,
		Overrides:        overrides,
	}, nil
}

// SetMarkupPercentage stores the markup applied to wholesale costs.
func (r *PricingSettingsRepository) SetMarkupPercentage(ctx context.Context, pct decimal.Decimal) error {
	return r.setSetting(ctx, SettingMarkupPercentage, pct.String())
}

// SetExchangeRate stores the secondary-per-primary exchange rate.
func (r *PricingSettingsRepository) SetExchangeRate(ctx context.Context, rate decimal.Decimal) error {
	return r.setSetting(ctx, SettingExchangeRate, rate.String())
}

func (r *PricingSettingsRepository) setSetting(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO pricing_settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	return err
}

// SetOverride upserts a fixed price for a route/service pair.
func (r *PricingSettingsRepository) SetOverride(ctx context.Context, route, serviceCode string, price decimal.Decimal) error {
	key := domain.NewRouteService(route, serviceCode)
	_, err := r.db.Exec(ctx, `
		INSERT INTO price_overrides (route, service_code, price, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (route, service_code) DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()`,
		key.Route, key.ServiceCode, price.StringFixed(2),
	)
	return err
}

// DeleteOverride removes the pair's fixed price and reports whether one
// existed.
func (r *PricingSettingsRepository) DeleteOverride(ctx context.Context, route, serviceCode string) (bool, error) {
	key := domain.NewRouteService(route, serviceCode)
	tag, err := r.db.Exec(ctx,
		`DELETE FROM price_overrides WHERE route = $1 AND service_code = $2`,
		key.Route, key.ServiceCode,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PricingSettingsRepository) settings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM pricing_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}

	return settings, rows.Err()
}

func (r *PricingSettingsRepository) overrides(ctx context.Context) (domain.PriceOverrides, error) {
	rows, err := r.db.Query(ctx, `SELECT route, service_code, price FROM price_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(domain.PriceOverrides)
	for rows.Next() {
		var route, service, price string
		if err := rows.Scan(&route, &service, &price); err != nil {
			return nil, err
		}
		overrides[domain.NewRouteService(route, service)] = price
	}

	return overrides, rows.Err()
}

func parseSetting(settings map[string]string, key string) (decimal.Decimal, error) {
	raw, ok := settings[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s not set", domain.ErrPricingConfigUnavailable, key)
	}

	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", domain.ErrPricingConfigUnavailable, key, raw)
	}

	return value, nil
}
