package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

const accountColumns = `id, email, primary_balance, secondary_balance, is_admin, is_blocked, created_at, updated_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: pool}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID,
		account.Email,
		decimalToNumeric(account.PrimaryBalance),
		decimalToNumeric(account.SecondaryBalance),
		account.IsAdmin,
		account.IsBlocked,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// SetBlocked sets the account's blocked flag.
func (r *AccountRepository) SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET is_blocked = $2, updated_at = $3 WHERE id = $1`,
		id, blocked, timeToPgTimestamptz(at),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Debit subtracts amount in a single guarded UPDATE. Concurrent debits
// serialize on the row; the loser sees the reduced balance.
func (r *AccountRepository) Debit(ctx context.Context, tx usecase.Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error {
	column, err := balanceColumn(currency)
	if err != nil {
		return err
	}

	db := conn(r.db, tx)

	tag, err := db.Exec(ctx,
		fmt.Sprintf(`UPDATE accounts SET %[1]s = %[1]s - $2, updated_at = $3 WHERE id = $1 AND %[1]s >= $2`, column),
		id, decimalToNumeric(amount), timeToPgTimestamptz(at),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return r.missingOrShort(ctx, db, id)
	}

	return nil
}

// Credit adds amount in a single UPDATE.
func (r *AccountRepository) Credit(ctx context.Context, tx usecase.Transaction, id string, currency domain.Currency, amount decimal.Decimal, at time.Time) error {
	column, err := balanceColumn(currency)
	if err != nil {
		return err
	}

	tag, err := conn(r.db, tx).Exec(ctx,
		fmt.Sprintf(`UPDATE accounts SET %[1]s = %[1]s + $2, updated_at = $3 WHERE id = $1`, column),
		id, decimalToNumeric(amount), timeToPgTimestamptz(at),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func (r *AccountRepository) missingOrShort(ctx context.Context, db querier, id string) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrAccountNotFound
	}
	return domain.ErrInsufficientFunds
}

func balanceColumn(currency domain.Currency) (string, error) {
	switch currency {
	case domain.CurrencyPrimary:
		return "primary_balance", nil
	case domain.CurrencySecondary:
		return "secondary_balance", nil
	default:
		return "", domain.ErrInvalidCurrency
	}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account            domain.Account
		primary, secondary pgtype.Numeric
	)

	err := row.Scan(
		&account.ID,
		&account.Email,
		&primary,
		&secondary,
		&account.IsAdmin,
		&account.IsBlocked,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.PrimaryBalance = numericToDecimal(primary)
	account.SecondaryBalance = numericToDecimal(secondary)

	return &account, nil
}
