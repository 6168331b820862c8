package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds every database transaction opened by
	// a use case.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultRentalTTL applies when the issuer reports no expiry.
	DefaultRentalTTL = 20 * time.Minute

	// DefaultQuoteTTL is how long a signed quote can be redeemed.
	DefaultQuoteTTL = 5 * time.Minute

	// UnpaidGracePeriod is how long an unpaid rental may sit before
	// reconciliation retries its debit.
	UnpaidGracePeriod = time.Minute

	// IdempotencyKeyTTL is how long a completed response is replayed when
	// no TTL is configured.
	IdempotencyKeyTTL = 24 * time.Hour
)
