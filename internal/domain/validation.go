package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidRoute   = errors.New("invalid route")
	ErrInvalidService = errors.New("invalid service code")
	ErrAmountTooLarge = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall = errors.New("amount below minimum allowed")
	ErrInvalidEmail   = errors.New("invalid email format")
)

// Validation constants
const (
	MaxRentalPrice   = "1000"
	MaxDepositAmount = "1000000000" // 1 billion
	MinAmount        = "0.01"
)

var (
	routeRegex   = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)
	serviceRegex = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateRoute validates a country/region code such as "0" or "nigeria".
func ValidateRoute(route string) error {
	route = strings.ToLower(strings.TrimSpace(route))
	if !routeRegex.MatchString(route) {
		return fmt.Errorf("%w: %q", ErrInvalidRoute, route)
	}
	return nil
}

// ValidateServiceCode validates a service code such as "wa" or "telegram".
func ValidateServiceCode(service string) error {
	service = strings.ToLower(strings.TrimSpace(service))
	if !serviceRegex.MatchString(service) {
		return fmt.Errorf("%w: %q", ErrInvalidService, service)
	}
	return nil
}

// ValidateAmount checks amount against [MinAmount, max].
func ValidateAmount(amount decimal.Decimal, max string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount, _ := decimal.NewFromString(MinAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinAmount)
	}

	maxAmount, _ := decimal.NewFromString(max)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, max)
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
