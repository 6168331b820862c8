package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/numrent/internal/adapter/http/dto"
	"github.com/iho/numrent/internal/domain"
)

const maxRequestBody = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   reason,
		Message: message,
	})
}

// writeDomainError writes err with its mapped status and reason.
func writeDomainError(w http.ResponseWriter, err error) {
	status := mapDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError && domain.Reason(err) == "internal_error" {
		message = "internal server error"
	}
	writeError(w, status, domain.Reason(err), message)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrChargeIncomplete),
		errors.Is(err, domain.ErrRefundIncomplete):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrRentalNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrOverrideNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrNumberUnavailable),
		errors.Is(err, domain.ErrMaxPriceExceeded),
		errors.Is(err, domain.ErrPriceChanged):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTooManyActiveRentals):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInsufficientProviderBalance),
		errors.Is(err, domain.ErrPricingConfigUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrProviderAuth),
		errors.Is(err, domain.ErrIssuerUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrAccountBlocked),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidRoute),
		errors.Is(err, domain.ErrInvalidService),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooSmall),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidQuote),
		errors.Is(err, domain.ErrMissingCode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrDuplicateLedgerPosting):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// principal returns the authenticated caller or writes 401.
func principal(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	p, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return nil, false
	}
	return p, true
}
