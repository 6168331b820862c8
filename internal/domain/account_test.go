package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

func TestAccount_SelectChargeCurrency(t *testing.T) {
	rate := decimal.NewFromInt(1600)

	tests := []struct {
		name      string
		primary   string
		secondary string
		price     string
		currency  domain.Currency
		amount    string
		expectErr error
	}{
		{
			name:     "primary covers price",
			primary:  "1.00",
			price:    "0.26",
			currency: domain.CurrencyPrimary,
			amount:   "0.26",
		},
		{
			name:     "primary exactly covers price",
			primary:  "0.50",
			price:    "0.50",
			currency: domain.CurrencyPrimary,
			amount:   "0.50",
		},
		{
			name:      "falls back to secondary",
			primary:   "0.10",
			secondary: "2000",
			price:     "0.50",
			currency:  domain.CurrencySecondary,
			amount:    "800",
		},
		{
			name:      "neither balance covers",
			primary:   "0.10",
			secondary: "700",
			price:     "0.50",
			expectErr: domain.ErrInsufficientFunds,
		},
		{
			name:      "zero price rejected",
			primary:   "1",
			price:     "0",
			expectErr: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &domain.Account{
				PrimaryBalance:   decimalOrZero(tt.primary),
				SecondaryBalance: decimalOrZero(tt.secondary),
			}

			currency, amount, err := account.SelectChargeCurrency(decimal.RequireFromString(tt.price), rate)
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Fatalf("expected %v, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if currency != tt.currency {
				t.Errorf("expected currency %s, got %s", tt.currency, currency)
			}
			if !amount.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("expected amount %s, got %s", tt.amount, amount)
			}
		})
	}
}

func TestAccount_ValidateDebit(t *testing.T) {
	account := &domain.Account{PrimaryBalance: decimal.NewFromInt(1), SecondaryBalance: decimal.NewFromInt(100)}

	if err := account.ValidateDebit(domain.CurrencySecondary, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := account.ValidateDebit(domain.CurrencyPrimary, decimal.NewFromInt(2)); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := account.ValidateDebit("EUR", decimal.NewFromInt(1)); !errors.Is(err, domain.ErrInvalidCurrency) {
		t.Fatalf("expected invalid currency, got %v", err)
	}
}

func decimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}
