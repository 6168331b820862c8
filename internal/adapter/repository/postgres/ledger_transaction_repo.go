package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

const ledgerTransactionColumns = `id, account_id, type, amount, currency, rental_id, reference, created_at`

// LedgerTransactionRepository implements usecase.LedgerTransactionRepository.
// Rows are only ever inserted.
type LedgerTransactionRepository struct {
	db querier
}

// NewLedgerTransactionRepository creates a new LedgerTransactionRepository.
func NewLedgerTransactionRepository(pool *pgxpool.Pool) *LedgerTransactionRepository {
	return &LedgerTransactionRepository{db: pool}
}

// Create appends a posting.
func (r *LedgerTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerTransaction) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO ledger_transactions (`+ledgerTransactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		entry.AccountID,
		string(entry.Type),
		decimalToNumeric(entry.Amount),
		string(entry.Currency),
		entry.RentalID,
		entry.Reference,
		timeToPgTimestamptz(entry.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateLedgerPosting, entry.Type)
	}

	return err
}

// ListByAccount lists an account's postings, newest first.
func (r *LedgerTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerTransaction, error) {
	return r.list(ctx, `
		SELECT `+ledgerTransactionColumns+` FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
}

// ListByRental lists the postings that reference a rental.
func (r *LedgerTransactionRepository) ListByRental(ctx context.Context, rentalID string) ([]*domain.LedgerTransaction, error) {
	return r.list(ctx, `
		SELECT `+ledgerTransactionColumns+` FROM ledger_transactions
		WHERE rental_id = $1
		ORDER BY created_at`,
		rentalID,
	)
}

// SumByAccount totals the account's postings per currency.
func (r *LedgerTransactionRepository) SumByAccount(ctx context.Context, accountID string) (map[domain.Currency]decimal.Decimal, error) {
	return r.sums(ctx, `
		SELECT currency, COALESCE(SUM(amount), 0) FROM ledger_transactions
		WHERE account_id = $1
		GROUP BY currency`,
		accountID,
	)
}

// SumUnsettledCharges totals the charge postings of unpaid rentals.
func (r *LedgerTransactionRepository) SumUnsettledCharges(ctx context.Context, accountID string) (map[domain.Currency]decimal.Decimal, error) {
	return r.sums(ctx, `
		SELECT lt.currency, COALESCE(SUM(-lt.amount), 0)
		FROM ledger_transactions lt
		JOIN rentals r ON r.id = lt.rental_id
		WHERE lt.account_id = $1 AND lt.type = 'rental_charge' AND NOT r.paid
		GROUP BY lt.currency`,
		accountID,
	)
}

func (r *LedgerTransactionRepository) sums(ctx context.Context, query, accountID string) (map[domain.Currency]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[domain.Currency]decimal.Decimal)
	for rows.Next() {
		var (
			currency string
			total    pgtype.Numeric
		)
		if err := rows.Scan(&currency, &total); err != nil {
			return nil, err
		}
		sums[domain.Currency(currency)] = numericToDecimal(total)
	}

	return sums, rows.Err()
}

func (r *LedgerTransactionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.LedgerTransaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerTransaction
	for rows.Next() {
		entry, err := scanLedgerTransaction(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanLedgerTransaction(row pgx.Row) (*domain.LedgerTransaction, error) {
	var (
		entry         domain.LedgerTransaction
		typ, currency string
		amount        pgtype.Numeric
	)

	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&typ,
		&amount,
		&currency,
		&entry.RentalID,
		&entry.Reference,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Type = domain.TransactionType(typ)
	entry.Amount = numericToDecimal(amount)
	entry.Currency = domain.Currency(currency)

	return &entry, nil
}
