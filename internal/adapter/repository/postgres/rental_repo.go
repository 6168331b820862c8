package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

const rentalColumns = `id, account_id, route, service_code, issued_number, issuer_id,
	wholesale_cost, price, charged_amount, charged_currency, exchange_rate,
	is_override_price, markup_percentage_at_issue, state, code, paid, paid_at,
	refund_amount, created_at, updated_at, expires_at, completed_at, cancelled_at`

// RentalRepository implements usecase.RentalRepository.
type RentalRepository struct {
	db querier
}

// NewRentalRepository creates a new RentalRepository.
func NewRentalRepository(pool *pgxpool.Pool) *RentalRepository {
	return &RentalRepository{db: pool}
}

// Create inserts a rental.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rentals (`+rentalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23)`,
		rental.ID,
		rental.AccountID,
		rental.Route,
		rental.ServiceCode,
		rental.IssuedNumber,
		rental.IssuerID,
		decimalToNumeric(rental.WholesaleCost),
		decimalToNumeric(rental.Price),
		decimalToNumeric(rental.ChargedAmount),
		string(rental.ChargedCurrency),
		decimalToNumeric(rental.ExchangeRate),
		rental.IsOverridePrice,
		decimalToNumeric(rental.MarkupPercentageAtIssue),
		string(rental.State),
		rental.Code,
		rental.Paid,
		nullableTimestamptz(rental.PaidAt),
		nullableNumeric(rental.RefundAmount),
		timeToPgTimestamptz(rental.CreatedAt),
		timeToPgTimestamptz(rental.UpdatedAt),
		timeToPgTimestamptz(rental.ExpiresAt),
		nullableTimestamptz(rental.CompletedAt),
		nullableTimestamptz(rental.CancelledAt),
	)

	return err
}

// GetByID retrieves a rental by ID.
func (r *RentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	return r.get(ctx, r.db, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a rental by ID with a FOR UPDATE lock.
func (r *RentalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Rental, error) {
	return r.get(ctx, conn(r.db, tx), `SELECT `+rentalColumns+` FROM rentals WHERE id = $1 FOR UPDATE`, id)
}

func (r *RentalRepository) get(ctx context.Context, db querier, query, id string) (*domain.Rental, error) {
	rental, err := scanRental(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRentalNotFound
		}

		return nil, err
	}

	return rental, nil
}

// UpdateState writes the lifecycle fields if the stored state is still from.
func (r *RentalRepository) UpdateState(ctx context.Context, tx usecase.Transaction, rental *domain.Rental, from domain.RentalState) (bool, error) {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE rentals
		SET state = $2, code = $3, refund_amount = $4, completed_at = $5, cancelled_at = $6, updated_at = $7
		WHERE id = $1 AND state = $8`,
		rental.ID,
		string(rental.State),
		rental.Code,
		nullableNumeric(rental.RefundAmount),
		nullableTimestamptz(rental.CompletedAt),
		nullableTimestamptz(rental.CancelledAt),
		timeToPgTimestamptz(rental.UpdatedAt),
		string(from),
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// MarkPaid records that the rental's debit completed.
func (r *RentalRepository) MarkPaid(ctx context.Context, tx usecase.Transaction, id string, paidAt time.Time) error {
	tag, err := conn(r.db, tx).Exec(ctx,
		`UPDATE rentals SET paid = TRUE, paid_at = $2 WHERE id = $1`,
		id, timeToPgTimestamptz(paidAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRentalNotFound
	}

	return nil
}

// ListPollable lists waiting rentals and cancelling rentals not updated
// since stuckBefore. Rentals never attempted come first, then the least
// recently attempted.
func (r *RentalRepository) ListPollable(ctx context.Context, stuckBefore time.Time, limit int) ([]*domain.Rental, error) {
	return r.list(ctx, `
		SELECT `+rentalColumns+` FROM rentals
		WHERE state = 'waiting' OR (state = 'cancelling' AND updated_at < $1)
		ORDER BY last_attempt_at NULLS FIRST, created_at
		LIMIT $2`,
		timeToPgTimestamptz(stuckBefore), limit,
	)
}

// TouchAttempt stamps the rental's last background attempt.
func (r *RentalRepository) TouchAttempt(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE rentals SET last_attempt_at = $2 WHERE id = $1`,
		id, timeToPgTimestamptz(at),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRentalNotFound
	}

	return nil
}

// ListActiveByAccount lists the account's non-terminal rentals, newest first.
func (r *RentalRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Rental, error) {
	return r.list(ctx, `
		SELECT `+rentalColumns+` FROM rentals
		WHERE account_id = $1 AND state IN ('waiting', 'cancelling')
		ORDER BY created_at DESC`,
		accountID,
	)
}

// ListUnpaid lists rentals whose debit never completed.
func (r *RentalRepository) ListUnpaid(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Rental, error) {
	return r.list(ctx, `
		SELECT `+rentalColumns+` FROM rentals
		WHERE NOT paid AND created_at < $1 AND state IN ('waiting', 'completed')
		ORDER BY last_attempt_at NULLS FIRST, created_at
		LIMIT $2`,
		timeToPgTimestamptz(olderThan), limit,
	)
}

func (r *RentalRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Rental, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []*domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}

	return rentals, rows.Err()
}

func scanRental(row pgx.Row) (*domain.Rental, error) {
	var (
		rental                                  domain.Rental
		wholesale, price, charged, rate, markup pgtype.Numeric
		refund                                  pgtype.Numeric
		currency, state                         string
		paidAt, completedAt, cancelledAt        pgtype.Timestamptz
	)

	err := row.Scan(
		&rental.ID,
		&rental.AccountID,
		&rental.Route,
		&rental.ServiceCode,
		&rental.IssuedNumber,
		&rental.IssuerID,
		&wholesale,
		&price,
		&charged,
		&currency,
		&rate,
		&rental.IsOverridePrice,
		&markup,
		&state,
		&rental.Code,
		&rental.Paid,
		&paidAt,
		&refund,
		&rental.CreatedAt,
		&rental.UpdatedAt,
		&rental.ExpiresAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	rental.WholesaleCost = numericToDecimal(wholesale)
	rental.Price = numericToDecimal(price)
	rental.ChargedAmount = numericToDecimal(charged)
	rental.ChargedCurrency = domain.Currency(currency)
	rental.ExchangeRate = numericToDecimal(rate)
	rental.MarkupPercentageAtIssue = numericToDecimal(markup)
	rental.State = domain.RentalState(state)
	rental.PaidAt = timestamptzToPtr(paidAt)
	rental.RefundAmount = numericToDecimalPtr(refund)
	rental.CompletedAt = timestamptzToPtr(completedAt)
	rental.CancelledAt = timestamptzToPtr(cancelledAt)

	return &rental, nil
}
