package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

// AccountRepository defines data access for accounts. Debit and Credit are
// single atomic increments against the stored balance; tx may be nil.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error
	// Debit fails with domain.ErrInsufficientFunds when the stored balance is
	// below amount at the moment of the update.
	Debit(ctx context.Context, tx Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error
	Credit(ctx context.Context, tx Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error
}

// RentalRepository defines data access for rentals.
type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id string) (*domain.Rental, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Rental, error)
	// UpdateState persists the rental's lifecycle fields only if the stored
	// state still equals from, and reports whether it did.
	UpdateState(ctx context.Context, tx Transaction, rental *domain.Rental, from domain.RentalState) (bool, error)
	MarkPaid(ctx context.Context, tx Transaction, id string, paidAt time.Time) error
	// ListPollable returns waiting rentals and cancelling rentals last
	// updated before stuckBefore, least recently attempted first.
	ListPollable(ctx context.Context, stuckBefore time.Time, limit int) ([]*domain.Rental, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Rental, error)
	// ListUnpaid returns waiting or completed rentals created before
	// olderThan whose debit never completed, least recently attempted first.
	ListUnpaid(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Rental, error)
	// TouchAttempt records that a background job worked on the rental, so
	// the next batch starts with rentals that waited longer.
	TouchAttempt(ctx context.Context, id string, at time.Time) error
}

// PricingSettingsStore persists operator changes to pricing.
type PricingSettingsStore interface {
	SetMarkupPercentage(ctx context.Context, pct decimal.Decimal) error
	SetExchangeRate(ctx context.Context, rate decimal.Decimal) error
	SetOverride(ctx context.Context, route, serviceCode string, price decimal.Decimal) error
	// DeleteOverride reports whether an override existed.
	DeleteOverride(ctx context.Context, route, serviceCode string) (bool, error)
}

// PricingCache drops a cached pricing snapshot.
type PricingCache interface {
	Invalidate(ctx context.Context) error
}

// QuoteSigner issues and checks the tokens that tie a shown price to a
// later acquisition.
type QuoteSigner interface {
	SignQuote(q domain.SignedQuote) (string, error)
	VerifyQuote(token string) (*domain.SignedQuote, error)
}

// LedgerTransactionRepository defines data access for the append-only
// transaction history.
type LedgerTransactionRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerTransaction) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerTransaction, error)
	ListByRental(ctx context.Context, rentalID string) ([]*domain.LedgerTransaction, error)
	SumByAccount(ctx context.Context, accountID string) (map[domain.Currency]decimal.Decimal, error)
	// SumUnsettledCharges totals, as positive amounts, the charge postings of
	// the account's rentals that were never debited.
	SumUnsettledCharges(ctx context.Context, accountID string) (map[domain.Currency]decimal.Decimal, error)
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore remembers the outcome of mutating requests by key.
type IdempotencyStore interface {
	// Reserve claims key for a new request. When the key is already taken it
	// returns the stored response, which is nil while the first request is
	// still in flight.
	Reserve(ctx context.Context, key string, ttl time.Duration) (reserved bool, stored []byte, err error)
	// Complete stores the final response under a reserved key.
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}
