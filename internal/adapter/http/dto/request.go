package dto

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

// ErrInvalidTTL is returned for a delegation ttl that is not a positive
// duration.
var ErrInvalidTTL = errors.New("ttl must be a positive duration")

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Email:   r.Email,
		IsAdmin: r.IsAdmin,
	}
}

// AcquireRentalRequest represents a request to rent a number.
type AcquireRentalRequest struct {
	Route       string           `json:"route"`
	Service     string           `json:"service"`
	QuoteToken  string           `json:"quote_token,omitempty"`
	QuotedPrice *decimal.Decimal `json:"quoted_price,omitempty"`
}

// ToUseCaseInput converts to use case input for accountID.
func (r *AcquireRentalRequest) ToUseCaseInput(accountID string) usecase.AcquireRentalInput {
	return usecase.AcquireRentalInput{
		AccountID:   accountID,
		Route:       r.Route,
		ServiceCode: r.Service,
		QuoteToken:  r.QuoteToken,
		QuotedPrice: r.QuotedPrice,
	}
}

// DepositRequest represents a wallet top-up made by a funding rail.
type DepositRequest struct {
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// ToUseCaseInput converts to use case input. The currency code is
// normalized.
func (r *DepositRequest) ToUseCaseInput(accountID string) (usecase.DepositInput, error) {
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return usecase.DepositInput{}, err
	}
	return usecase.DepositInput{
		AccountID: accountID,
		Currency:  currency,
		Amount:    r.Amount,
		Reference: r.Reference,
	}, nil
}

// DelegationRequest asks for a token acting as another account.
type DelegationRequest struct {
	AccountID string `json:"account_id"`
	// TTL is a Go duration string such as "15m". Empty uses the server
	// maximum.
	TTL string `json:"ttl,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *DelegationRequest) ToUseCaseInput() (usecase.DelegateInput, error) {
	input := usecase.DelegateInput{AccountID: r.AccountID}
	if r.TTL == "" {
		return input, nil
	}
	ttl, err := time.ParseDuration(r.TTL)
	if err != nil || ttl <= 0 {
		return usecase.DelegateInput{}, ErrInvalidTTL
	}
	input.TTL = ttl
	return input, nil
}

// SettleRequest bounds a settlement run.
type SettleRequest struct {
	Limit int `json:"limit"`
}

// PricingValueRequest carries a new markup, exchange rate or override price.
type PricingValueRequest struct {
	Value *decimal.Decimal `json:"value"`
}

// Decimal returns the submitted value. A missing value is an invalid amount.
func (r *PricingValueRequest) Decimal() (decimal.Decimal, error) {
	if r.Value == nil {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return *r.Value, nil
}
