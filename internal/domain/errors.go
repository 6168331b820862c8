package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountBlocked    = errors.New("account is blocked")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidCurrency   = errors.New("invalid currency")

	// Rental errors
	ErrRentalNotFound           = errors.New("rental not found")
	ErrInvalidStateTransition   = errors.New("invalid rental state transition")
	ErrMissingCode              = errors.New("completed rental requires a code")
	ErrChargeIncomplete         = errors.New("rental created but charge did not complete")
	ErrRefundIncomplete         = errors.New("rental cancellation did not complete")
	ErrTransactionNotFound      = errors.New("ledger transaction not found")
	ErrDuplicateLedgerPosting   = errors.New("ledger transaction already recorded for rental")
	ErrPricingConfigUnavailable = errors.New("pricing configuration unavailable")
	ErrInvalidQuote             = errors.New("quote is invalid or expired")
	ErrPriceChanged             = errors.New("price is no longer available at the quoted amount")
	ErrOverrideNotFound         = errors.New("price override not found")

	// Provider errors, surfaced verbatim from the number issuer
	ErrNumberUnavailable           = errors.New("no numbers available for this route and service")
	ErrMaxPriceExceeded            = errors.New("provider price exceeds the maximum price")
	ErrInsufficientProviderBalance = errors.New("provider balance is insufficient")
	ErrTooManyActiveRentals        = errors.New("too many active rentals with the provider")
	ErrProviderAuth                = errors.New("provider rejected credentials")
	ErrIssuerUnavailable           = errors.New("number issuer unavailable")
)

// IsProviderError reports whether err originates from the number issuer.
func IsProviderError(err error) bool {
	switch {
	case errors.Is(err, ErrNumberUnavailable),
		errors.Is(err, ErrMaxPriceExceeded),
		errors.Is(err, ErrInsufficientProviderBalance),
		errors.Is(err, ErrTooManyActiveRentals),
		errors.Is(err, ErrProviderAuth),
		errors.Is(err, ErrIssuerUnavailable):
		return true
	}
	return false
}

// Reason returns a stable machine-readable code for err so callers can tell
// funding, inventory and input problems apart.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrChargeIncomplete):
		return "charge_incomplete"
	case errors.Is(err, ErrRefundIncomplete):
		return "refund_incomplete"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNumberUnavailable):
		return "number_unavailable"
	case errors.Is(err, ErrMaxPriceExceeded):
		return "max_price_exceeded"
	case errors.Is(err, ErrInsufficientProviderBalance):
		return "insufficient_provider_balance"
	case errors.Is(err, ErrTooManyActiveRentals):
		return "too_many_active_rentals"
	case errors.Is(err, ErrProviderAuth):
		return "provider_auth_error"
	case errors.Is(err, ErrIssuerUnavailable):
		return "issuer_unavailable"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAccountBlocked):
		return "account_blocked"
	case errors.Is(err, ErrRentalNotFound):
		return "rental_not_found"
	case errors.Is(err, ErrOverrideNotFound):
		return "override_not_found"
	case errors.Is(err, ErrInvalidRoute):
		return "invalid_route"
	case errors.Is(err, ErrInvalidService):
		return "invalid_service"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAmountTooSmall), errors.Is(err, ErrAmountTooLarge):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidCurrency):
		return "invalid_currency"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, ErrDuplicateLedgerPosting):
		return "duplicate_posting"
	case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrMissingCode):
		return "invalid_state_transition"
	case errors.Is(err, ErrPricingConfigUnavailable):
		return "pricing_unavailable"
	case errors.Is(err, ErrInvalidQuote):
		return "invalid_quote"
	case errors.Is(err, ErrPriceChanged):
		return "price_changed"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal_error"
	}
}
