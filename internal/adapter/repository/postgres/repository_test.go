package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
)

func TestAccountRepositorySetBlocked(t *testing.T) {
	now := time.Now().UTC()

	mockPool := newMockPool(t)
	mockPool.ExpectExec(`UPDATE accounts SET is_blocked = \$2`).
		WithArgs("acc-1", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(`UPDATE accounts SET is_blocked = \$2`).
		WithArgs("missing", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := &AccountRepository{db: mockPool}
	if err := repo.SetBlocked(context.Background(), "acc-1", true, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.SetBlocked(context.Background(), "missing", true, now); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryDebit(t *testing.T) {
	now := time.Now().UTC()
	amount := decimal.RequireFromString("0.26")

	t.Run("applies guarded update", func(t *testing.T) {
		mockPool := newMockPool(t)
		mockPool.ExpectExec(`UPDATE accounts SET primary_balance = primary_balance - \$2`).
			WithArgs("acc-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := &AccountRepository{db: mockPool}
		if err := repo.Debit(context.Background(), nil, "acc-1", domain.CurrencyPrimary, amount, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertExpectations(t, mockPool)
	})

	t.Run("short balance", func(t *testing.T) {
		mockPool := newMockPool(t)
		mockPool.ExpectExec(`UPDATE accounts SET secondary_balance = secondary_balance - \$2`).
			WithArgs("acc-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery(`SELECT EXISTS`).
			WithArgs("acc-1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		repo := &AccountRepository{db: mockPool}
		err := repo.Debit(context.Background(), nil, "acc-1", domain.CurrencySecondary, amount, now)
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}

		assertExpectations(t, mockPool)
	})

	t.Run("missing account", func(t *testing.T) {
		mockPool := newMockPool(t)
		mockPool.ExpectExec(`UPDATE accounts`).
			WithArgs("missing", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery(`SELECT EXISTS`).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		repo := &AccountRepository{db: mockPool}
		err := repo.Debit(context.Background(), nil, "missing", domain.CurrencyPrimary, amount, now)
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("unknown currency", func(t *testing.T) {
		mockPool := newMockPool(t)

		repo := &AccountRepository{db: mockPool}
		err := repo.Debit(context.Background(), nil, "acc-1", domain.Currency("EUR"), amount, now)
		if !errors.Is(err, domain.ErrInvalidCurrency) {
			t.Fatalf("expected ErrInvalidCurrency, got %v", err)
		}

		assertExpectations(t, mockPool)
	})
}

func TestAccountRepositoryCreditRunsInTransaction(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(readCommitted)
	mockPool.ExpectExec(`UPDATE accounts SET primary_balance = primary_balance \+ \$2`).
		WithArgs("acc-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectCommit()

	tx, err := newTxManagerWithPool(mockPool).Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := &AccountRepository{db: mockPool}
	if err := repo.Credit(context.Background(), tx, "acc-1", domain.CurrencyPrimary, decimal.RequireFromString("1.50"), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestRentalRepositoryUpdateStateIsConditional(t *testing.T) {
	now := time.Now().UTC()
	rental := &domain.Rental{
		ID:        "rental-1",
		State:     domain.RentalStateCancelling,
		UpdatedAt: now,
	}

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"state matched", 1, true},
		{"state moved on", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool := newMockPool(t)
			mockPool.ExpectExec(`UPDATE rentals`).
				WithArgs(
					"rental-1", "cancelling", pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "waiting",
				).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			repo := &RentalRepository{db: mockPool}
			updated, err := repo.UpdateState(context.Background(), nil, rental, domain.RentalStateWaiting)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, updated)
			}

			assertExpectations(t, mockPool)
		})
	}
}

func TestRentalRepositoryListPollableRotates(t *testing.T) {
	stuckBefore := time.Now().UTC().Add(-time.Minute)

	mockPool := newMockPool(t)
	mockPool.ExpectQuery(`WHERE state = 'waiting' OR \(state = 'cancelling' AND updated_at < \$1\)\s+ORDER BY last_attempt_at NULLS FIRST, created_at`).
		WithArgs(pgxmock.AnyArg(), 50).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	repo := &RentalRepository{db: mockPool}
	rentals, err := repo.ListPollable(context.Background(), stuckBefore, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rentals) != 0 {
		t.Fatalf("expected no rentals, got %d", len(rentals))
	}

	assertExpectations(t, mockPool)
}

func TestRentalRepositoryTouchAttempt(t *testing.T) {
	now := time.Now().UTC()

	mockPool := newMockPool(t)
	mockPool.ExpectExec(`UPDATE rentals SET last_attempt_at = \$2 WHERE id = \$1`).
		WithArgs("rental-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(`UPDATE rentals SET last_attempt_at = \$2 WHERE id = \$1`).
		WithArgs("missing", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := &RentalRepository{db: mockPool}
	if err := repo.TouchAttempt(context.Background(), "rental-1", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.TouchAttempt(context.Background(), "missing", now); !errors.Is(err, domain.ErrRentalNotFound) {
		t.Fatalf("expected ErrRentalNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestLedgerTransactionRepositoryRejectsDuplicatePosting(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec(`INSERT INTO ledger_transactions`).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	rentalID := "rental-1"
	repo := &LedgerTransactionRepository{db: mockPool}
	err := repo.Create(context.Background(), nil, &domain.LedgerTransaction{
		ID:        "tx-1",
		AccountID: "acc-1",
		Type:      domain.TransactionTypeRefund,
		Amount:    decimal.RequireFromString("0.26"),
		Currency:  domain.CurrencyPrimary,
		RentalID:  &rentalID,
		CreatedAt: time.Now(),
	})

	if !errors.Is(err, domain.ErrDuplicateLedgerPosting) {
		t.Fatalf("expected ErrDuplicateLedgerPosting, got %v", err)
	}
}

func TestLedgerTransactionRepositorySumByAccount(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery(`SELECT currency, COALESCE\(SUM\(amount\), 0\)`).
		WithArgs("acc-1").
		WillReturnRows(pgxmock.NewRows([]string{"currency", "sum"}).
			AddRow("USD", decimalToNumeric(decimal.RequireFromString("0.74"))).
			AddRow("NGN", decimalToNumeric(decimal.RequireFromString("1200"))))

	repo := &LedgerTransactionRepository{db: mockPool}
	sums, err := repo.SumByAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sums[domain.CurrencyPrimary].Equal(decimal.RequireFromString("0.74")) {
		t.Errorf("expected USD 0.74, got %s", sums[domain.CurrencyPrimary])
	}
	if !sums[domain.CurrencySecondary].Equal(decimal.RequireFromString("1200")) {
		t.Errorf("expected NGN 1200, got %s", sums[domain.CurrencySecondary])
	}
}

func TestPricingSettingsRepositorySnapshot(t *testing.T) {
	t.Run("reads settings and overrides", func(t *testing.T) {
		mockPool := newMockPool(t)
		mockPool.ExpectQuery(`SELECT key, value FROM pricing_settings`).
			WillReturnRows(pgxmock.NewRows([]string{"key", "value"}).
				AddRow(SettingMarkupPercentage, "30").
				AddRow(SettingExchangeRate, " 1600 "))
		mockPool.ExpectQuery(`SELECT route, service_code, price FROM price_overrides`).
			WillReturnRows(pgxmock.NewRows([]string{"route", "service_code", "price"}).
				AddRow("0", "WA", "0.99"))

		repo := &PricingSettingsRepository{db: mockPool}
		cfg, err := repo.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.MarkupPercentage.Equal(decimal.NewFromInt(30)) {
			t.Errorf("expected markup 30, got %s", cfg.MarkupPercentage)
		}
		if !cfg.ExchangeRate.Equal(decimal.NewFromInt(1600)) {
			t.Errorf("expected rate 1600, got %s", cfg.ExchangeRate)
		}
		if price, ok := cfg.Overrides.Lookup("0", "wa"); !ok || !price.Equal(decimal.RequireFromString("0.99")) {
			t.Errorf("expected override 0.99, got %s (%v)", price, ok)
		}
	})

	t.Run("missing exchange rate", func(t *testing.T) {
		mockPool := newMockPool(t)
		mockPool.ExpectQuery(`SELECT key, value FROM pricing_settings`).
			WillReturnRows(pgxmock.NewRows([]string{"key", "value"}).
				AddRow(SettingMarkupPercentage, "30"))

		repo := &PricingSettingsRepository{db: mockPool}
		_, err := repo.Snapshot(context.Background())
		if !errors.Is(err, domain.ErrPricingConfigUnavailable) {
			t.Fatalf("expected ErrPricingConfigUnavailable, got %v", err)
		}
	})
}

func TestPricingSettingsRepositoryWrites(t *testing.T) {
	mockPool := newMockPool(t)
	repo := &PricingSettingsRepository{db: mockPool}
	ctx := context.Background()

	mockPool.ExpectExec(`INSERT INTO pricing_settings`).
		WithArgs(SettingMarkupPercentage, "25").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(`INSERT INTO pricing_settings`).
		WithArgs(SettingExchangeRate, "1650.5").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(`INSERT INTO price_overrides`).
		WithArgs("0", "wa", "1.00").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(`DELETE FROM price_overrides`).
		WithArgs("0", "wa").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectExec(`DELETE FROM price_overrides`).
		WithArgs("0", "tg").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.SetMarkupPercentage(ctx, decimal.NewFromInt(25)); err != nil {
		t.Fatalf("set markup: %v", err)
	}
	if err := repo.SetExchangeRate(ctx, decimal.RequireFromString("1650.5")); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if err := repo.SetOverride(ctx, "0", "WA", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("set override: %v", err)
	}

	found, err := repo.DeleteOverride(ctx, "0", "wa")
	if err != nil || !found {
		t.Fatalf("expected override deleted, got %v (%v)", found, err)
	}
	found, err = repo.DeleteOverride(ctx, "0", "tg")
	if err != nil || found {
		t.Fatalf("expected nothing deleted, got %v (%v)", found, err)
	}

	assertExpectations(t, mockPool)
}

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.26", "-0.26", "800", "1234567.89"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Errorf("%s: got %s", s, got)
		}
	}
}
