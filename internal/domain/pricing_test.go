package domain_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/numrent/internal/domain"
)

func TestResolvePrice_MarkupScenario(t *testing.T) {
	price, isOverride := domain.ResolvePrice("0", "wa", decimal.RequireFromString("0.20"), decimal.NewFromInt(30), nil)

	assert.False(t, isOverride)
	assert.True(t, price.Equal(decimal.RequireFromString("0.26")), "got %s", price)
}

func TestResolvePrice_OverrideScenario(t *testing.T) {
	overrides := domain.PriceOverrides{
		domain.NewRouteService("0", "wa"): "0.99",
	}

	price, isOverride := domain.ResolvePrice("0", "wa", decimal.RequireFromString("0.20"), decimal.NewFromInt(30), overrides)

	assert.True(t, isOverride)
	assert.True(t, price.Equal(decimal.RequireFromString("0.99")), "got %s", price)
}

func TestResolvePrice_OverrideKeyIsCaseInsensitive(t *testing.T) {
	overrides := domain.PriceOverrides{
		domain.NewRouteService("Nigeria", "WA"): "1.50",
	}

	price, isOverride := domain.ResolvePrice("nigeria", "wa", decimal.RequireFromString("0.20"), decimal.NewFromInt(30), overrides)

	assert.True(t, isOverride)
	assert.Equal(t, "1.5", price.String())
}

func TestResolvePrice_MalformedOverrideFallsThrough(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not a number", raw: "abc"},
		{name: "negative", raw: "-1"},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides := domain.PriceOverrides{domain.NewRouteService("0", "wa"): tt.raw}

			price, isOverride := domain.ResolvePrice("0", "wa", decimal.RequireFromString("0.20"), decimal.NewFromInt(30), overrides)

			assert.False(t, isOverride)
			assert.Equal(t, "0.26", price.StringFixed(2))
		})
	}
}

func TestResolvePrice_OverrideIgnoresCostAndMarkup(t *testing.T) {
	overrides := domain.PriceOverrides{domain.NewRouteService("us", "tg"): "2.00"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		cost := decimal.New(rng.Int63n(100000), -2)
		markup := decimal.NewFromInt(rng.Int63n(500))

		price, isOverride := domain.ResolvePrice("us", "tg", cost, markup, overrides)

		require.True(t, isOverride)
		require.True(t, price.Equal(decimal.NewFromInt(2)))
	}
}

func TestResolvePrice_MarkupNeverBelowCost(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		cost := decimal.New(rng.Int63n(100000), -2)
		markup := decimal.New(rng.Int63n(50000), -2)

		price, isOverride := domain.ResolvePrice("0", "wa", cost, markup, nil)

		require.False(t, isOverride)
		expected := cost.Mul(decimal.NewFromInt(1).Add(markup.Div(decimal.NewFromInt(100)))).Round(2)
		require.True(t, price.Equal(expected), "cost=%s markup=%s got=%s want=%s", cost, markup, price, expected)
		require.True(t, price.GreaterThanOrEqual(cost), "cost=%s markup=%s price=%s", cost, markup, price)
	}
}

func TestRound2_HalfUp(t *testing.T) {
	assert.Equal(t, "0.13", domain.Round2(decimal.RequireFromString("0.125")).String())
	assert.Equal(t, "0.12", domain.Round2(decimal.RequireFromString("0.1249")).String())
}

func TestResolvePrice_OverrideRoundedToCents(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "0.995", want: "1.00"},
		{raw: "0.994", want: "0.99"},
		{raw: " 1.5 ", want: "1.50"},
		{raw: "0", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			overrides := domain.PriceOverrides{domain.NewRouteService("0", "wa"): tt.raw}

			price, isOverride := domain.ResolvePrice("0", "wa", decimal.RequireFromString("0.20"), decimal.NewFromInt(30), overrides)

			assert.True(t, isOverride)
			assert.Equal(t, tt.want, price.StringFixed(2))
			assert.True(t, price.Equal(domain.Round2(price)), "price %s carries sub-cent digits", price)
		})
	}
}

func TestSignedQuote_Matches(t *testing.T) {
	q := &domain.SignedQuote{Route: "0", ServiceCode: "wa"}

	assert.True(t, q.Matches("0", "WA"))
	assert.False(t, q.Matches("0", "tg"))
	assert.False(t, q.Matches("1", "wa"))
}
