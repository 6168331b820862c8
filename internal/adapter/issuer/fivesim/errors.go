package fivesim

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/iho/numrent/internal/domain"
)

var (
	errOrderNotFound = errors.New("order not found")
	errOrderRefused  = errors.New("order cannot be cancelled")
)

var messageErrors = []struct {
	fragment string
	err      error
}{
	{"no free phones", domain.ErrNumberUnavailable},
	{"no product", domain.ErrNumberUnavailable},
	{"bad country", domain.ErrNumberUnavailable},
	{"bad operator", domain.ErrNumberUnavailable},
	{"select operator", domain.ErrNumberUnavailable},
	{"maxprice", domain.ErrMaxPriceExceeded},
	{"max price", domain.ErrMaxPriceExceeded},
	{"not enough user balance", domain.ErrInsufficientProviderBalance},
	{"not enough rating", domain.ErrInsufficientProviderBalance},
	{"too many", domain.ErrTooManyActiveRentals},
	{"limit of active", domain.ErrTooManyActiveRentals},
	{"order not found", errOrderNotFound},
	{"order expired", errOrderRefused},
	{"order has sms", errOrderRefused},
	{"hosting order", errOrderRefused},
	{"server offline", domain.ErrIssuerUnavailable},
}

// classify maps a non-success response onto the provider error taxonomy.
func classify(status int, body []byte) error {
	msg := strings.ToLower(strings.TrimSpace(string(body)))

	for _, m := range messageErrors {
		if strings.Contains(msg, m.fragment) {
			return fmt.Errorf("%w: %s", m.err, msg)
		}
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrProviderAuth, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", errOrderNotFound, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", domain.ErrTooManyActiveRentals, status)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: status %d", domain.ErrInsufficientProviderBalance, status)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrIssuerUnavailable, status, msg)
	}
}
