package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a customer wallet holding one balance per currency.
type Account struct {
	ID               string
	Email            string
	PrimaryBalance   decimal.Decimal
	SecondaryBalance decimal.Decimal
	IsAdmin          bool
	IsBlocked        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Balance returns the balance held in currency.
func (a *Account) Balance(currency Currency) decimal.Decimal {
	if currency == CurrencySecondary {
		return a.SecondaryBalance
	}
	return a.PrimaryBalance
}

// ValidateDebit checks that amount can be taken from the currency balance.
func (a *Account) ValidateDebit(currency Currency, amount decimal.Decimal) error {
	if !currency.IsValid() {
		return ErrInvalidCurrency
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if a.Balance(currency).LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// SelectChargeCurrency picks the balance to charge for a primary-currency
// price. The primary balance wins when it covers the price; otherwise the
// secondary balance is used at rate. The returned amount is in the chosen
// currency.
func (a *Account) SelectChargeCurrency(price, rate decimal.Decimal) (Currency, decimal.Decimal, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return "", decimal.Zero, ErrInvalidAmount
	}

	if a.PrimaryBalance.GreaterThanOrEqual(price) {
		return CurrencyPrimary, price, nil
	}

	if rate.IsPositive() {
		converted := ConvertToSecondary(price, rate)
		if a.SecondaryBalance.GreaterThanOrEqual(converted) {
			return CurrencySecondary, converted, nil
		}
	}

	return "", decimal.Zero, ErrInsufficientFunds
}
