package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency identifies which of the two account balances a posting touches.
type Currency string

const (
	// CurrencyPrimary is the USD balance.
	CurrencyPrimary Currency = "USD"
	// CurrencySecondary is the NGN balance funded by bank transfers.
	CurrencySecondary Currency = "NGN"
)

// ParseCurrency normalizes a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

// IsValid reports whether c is one of the two wallet currencies.
func (c Currency) IsValid() bool {
	return c == CurrencyPrimary || c == CurrencySecondary
}

func (c Currency) String() string {
	return string(c)
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ConvertToSecondary converts a primary-currency amount using rate
// (secondary units per primary unit).
func ConvertToSecondary(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}
