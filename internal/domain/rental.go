package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentalState is the lifecycle state of a rented number.
type RentalState string

const (
	RentalStateWaiting    RentalState = "waiting"
	RentalStateCompleted  RentalState = "completed"
	RentalStateCancelling RentalState = "cancelling"
	RentalStateCancelled  RentalState = "cancelled"
	RentalStateError      RentalState = "error"
)

// IsTerminal reports whether no further transitions are possible.
func (s RentalState) IsTerminal() bool {
	switch s {
	case RentalStateCompleted, RentalStateCancelled, RentalStateError:
		return true
	}
	return false
}

// IsValid reports whether s is a known state.
func (s RentalState) IsValid() bool {
	switch s {
	case RentalStateWaiting, RentalStateCompleted, RentalStateCancelling, RentalStateCancelled, RentalStateError:
		return true
	}
	return false
}

var rentalTransitions = map[RentalState][]RentalState{
	RentalStateWaiting:    {RentalStateCompleted, RentalStateError, RentalStateCancelling},
	RentalStateCancelling: {RentalStateCancelled},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to RentalState) bool {
	for _, next := range rentalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Rental is a single number rental. ChargedAmount and ChargedCurrency are
// fixed at creation; refunds read them and never re-derive a price.
type Rental struct {
	ID                      string
	AccountID               string
	Route                   string
	ServiceCode             string
	IssuedNumber            string
	IssuerID                string
	WholesaleCost           decimal.Decimal
	Price                   decimal.Decimal
	ChargedAmount           decimal.Decimal
	ChargedCurrency         Currency
	ExchangeRate            decimal.Decimal
	IsOverridePrice         bool
	MarkupPercentageAtIssue decimal.Decimal
	State                   RentalState
	Code                    *string
	Paid                    bool
	PaidAt                  *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
	ExpiresAt               time.Time
	CompletedAt             *time.Time
	CancelledAt             *time.Time
	RefundAmount            *decimal.Decimal
}

// IsExpired reports whether a waiting rental has outlived its window.
func (r *Rental) IsExpired(now time.Time) bool {
	return r.State == RentalStateWaiting && !now.Before(r.ExpiresAt)
}

// Complete moves a waiting rental to completed with the delivered code.
func (r *Rental) Complete(code string, at time.Time) error {
	if code == "" {
		return ErrMissingCode
	}
	if !CanTransition(r.State, RentalStateCompleted) {
		return ErrInvalidStateTransition
	}
	r.State = RentalStateCompleted
	r.Code = &code
	r.CompletedAt = &at
	r.UpdatedAt = at
	return nil
}

// Fail moves a waiting rental to error.
func (r *Rental) Fail(at time.Time) error {
	if !CanTransition(r.State, RentalStateError) {
		return ErrInvalidStateTransition
	}
	r.State = RentalStateError
	r.UpdatedAt = at
	return nil
}

// BeginCancel moves a waiting rental to cancelling.
func (r *Rental) BeginCancel(at time.Time) error {
	if !CanTransition(r.State, RentalStateCancelling) {
		return ErrInvalidStateTransition
	}
	r.State = RentalStateCancelling
	r.UpdatedAt = at
	return nil
}

// RefundDue is what cancellation returns to the wallet: the charged amount
// when the debit went through, zero otherwise.
func (r *Rental) RefundDue() decimal.Decimal {
	if !r.Paid {
		return decimal.Zero
	}
	return r.ChargedAmount
}

// FinishCancel moves a cancelling rental to cancelled with the refund.
func (r *Rental) FinishCancel(refund decimal.Decimal, at time.Time) error {
	if !CanTransition(r.State, RentalStateCancelled) {
		return ErrInvalidStateTransition
	}
	r.State = RentalStateCancelled
	r.RefundAmount = &refund
	r.CancelledAt = &at
	r.UpdatedAt = at
	return nil
}

// DeliveryState is what the issuer reports for an outstanding rental.
type DeliveryState string

const (
	DeliveryWaiting   DeliveryState = "waiting"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryCancelled DeliveryState = "cancelled"
	DeliveryNotFound  DeliveryState = "not_found"
)

// Delivery is the result of a delivery check.
type Delivery struct {
	State DeliveryState
	Code  string
}

// IssuedNumber is what the issuer returns for a purchase.
type IssuedNumber struct {
	IssuerID      string
	Number        string
	WholesaleCost decimal.Decimal
	ExpiresAt     *time.Time
}

// RefundResult describes the outcome of a cancellation.
type RefundResult struct {
	RentalID       string
	State          RentalState
	Amount         decimal.Decimal
	Currency       Currency
	IssuerReleased bool
	AlreadySettled bool
	CancelledAt    *time.Time
}
