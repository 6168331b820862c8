package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger posting.
type TransactionType string

const (
	TransactionTypeRentalCharge TransactionType = "rental_charge"
	TransactionTypeRefund       TransactionType = "refund"
	TransactionTypeDeposit      TransactionType = "deposit"
)

// LedgerTransaction is an append-only posting against one account balance.
// Amount is signed: charges are negative, refunds and deposits positive.
type LedgerTransaction struct {
	ID        string
	AccountID string
	Type      TransactionType
	Amount    decimal.Decimal
	Currency  Currency
	RentalID  *string
	Reference string
	CreatedAt time.Time
}

// Validate checks that the sign of Amount matches Type.
func (t *LedgerTransaction) Validate() error {
	if !t.Currency.IsValid() {
		return ErrInvalidCurrency
	}
	switch t.Type {
	case TransactionTypeRentalCharge:
		if !t.Amount.IsNegative() {
			return ErrInvalidAmount
		}
	case TransactionTypeRefund, TransactionTypeDeposit:
		if t.Amount.IsNegative() {
			return ErrInvalidAmount
		}
	default:
		return ErrInvalidAmount
	}
	return nil
}
