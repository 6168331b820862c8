package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

func newReconciliation(f *rentalFixture) *usecase.ReconciliationUseCase {
	return usecase.NewReconciliationUseCase(f.accounts, f.ledger, f.rentals, f.uc, nil, zerolog.Nop())
}

func TestReconcileAccount(t *testing.T) {
	f := newRentalFixture(t)
	f.addAccount(t, "acc-1", "0", "0")
	f.stockNumbers("0", "wa", "0.20")
	f.issuer.EXPECT().Release(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()

	ctx := context.Background()
	if _, err := f.wallet.Deposit(ctx, usecase.DepositInput{AccountID: "acc-1", Currency: domain.CurrencyPrimary, Amount: dec("2.00")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := f.uc.Acquire(ctx, usecase.AcquireRentalInput{AccountID: "acc-1", Route: "0", ServiceCode: "wa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.uc.Acquire(ctx, usecase.AcquireRentalInput{AccountID: "acc-1", Route: "0", ServiceCode: "wa"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.uc.Cancel(ctx, first.ID, usecase.CancelTriggerUser); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := newReconciliation(f).ReconcileAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected a result per currency, got %d", len(results))
	}
	for _, r := range results {
		if !r.IsReconciled {
			t.Errorf("%s: expected reconciled, recorded=%s calculated=%s", r.Currency, r.RecordedBalance, r.CalculatedBalance)
		}
	}
	assertDecimal(t, "primary", "1.74", results[0].RecordedBalance)
}

func TestReconcileAccount_DetectsDrift(t *testing.T) {
	f := newRentalFixture(t)
	f.addAccount(t, "acc-1", "5.00", "0")

	results, err := newReconciliation(f).ReconcileAccount(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].IsReconciled {
		t.Error("expected balance without postings to be flagged")
	}
	assertDecimal(t, "difference", "5.00", results[0].Difference)

	if _, err := newReconciliation(f).ReconcileAccount(context.Background(), "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSettleUnpaidRentals(t *testing.T) {
	f := newRentalFixture(t)
	f.addAccount(t, "acc-1", "0", "0")
	f.stockNumbers("0", "wa", "0.20")

	ctx := context.Background()
	if _, err := f.wallet.Deposit(ctx, usecase.DepositInput{AccountID: "acc-1", Currency: domain.CurrencyPrimary, Amount: dec("1.00")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.accounts.DebitFunc = func(context.Context, usecase.Transaction, string, domain.Currency, decimal.Decimal, time.Time) error {
		return errors.New("connection reset")
	}

	rental, err := f.uc.Acquire(ctx, usecase.AcquireRentalInput{AccountID: "acc-1", Route: "0", ServiceCode: "wa"})
	if !errors.Is(err, domain.ErrChargeIncomplete) {
		t.Fatalf("expected ErrChargeIncomplete, got %v", err)
	}

	reconciliation := newReconciliation(f)

	// The unpaid charge posting is carried as unsettled, not as drift.
	results, err := reconciliation.ReconcileAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !results[0].IsReconciled {
		t.Errorf("expected reconciled with unsettled charge, got difference %s", results[0].Difference)
	}
	assertDecimal(t, "unsettled", "0.26", results[0].Unsettled)

	f.accounts.DebitFunc = nil

	report, err := reconciliation.SettleUnpaidRentals(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Found != 1 || report.Settled != 1 {
		t.Errorf("expected 1 settled rental, got %+v", report)
	}

	stored, _ := f.rentals.GetByID(ctx, rental.ID)
	if !stored.Paid {
		t.Error("expected rental to be paid")
	}
	assertDecimal(t, "primary", "0.74", f.balance(t, "acc-1", domain.CurrencyPrimary))

	results, _ = reconciliation.ReconcileAccount(ctx, "acc-1")
	if !results[0].IsReconciled || !results[0].Unsettled.IsZero() {
		t.Errorf("expected settled and reconciled, got %+v", results[0])
	}

	if n := len(f.postings(rental.ID, domain.TransactionTypeRentalCharge)); n != 1 {
		t.Errorf("expected the original charge posting only, got %d", n)
	}
}

func TestSettleUnpaidRentals_MovesPastUnderfundedRentals(t *testing.T) {
	f := newRentalFixture(t)
	f.addAccount(t, "acc-short", "1.00", "0")
	f.addAccount(t, "acc-ok", "1.00", "0")
	f.stockNumbers("0", "wa", "0.20")

	ctx := context.Background()
	f.accounts.DebitFunc = func(context.Context, usecase.Transaction, string, domain.Currency, decimal.Decimal, time.Time) error {
		return errors.New("connection reset")
	}

	var newest *domain.Rental
	for _, accountID := range []string{"acc-short", "acc-short", "acc-ok"} {
		f.now = f.now.Add(time.Second)
		rental, err := f.uc.Acquire(ctx, usecase.AcquireRentalInput{AccountID: accountID, Route: "0", ServiceCode: "wa"})
		if !errors.Is(err, domain.ErrChargeIncomplete) {
			t.Fatalf("expected ErrChargeIncomplete, got %v", err)
		}
		newest = rental
	}

	// The oldest account can no longer pay.
	f.accounts.DebitFunc = func(_ context.Context, _ usecase.Transaction, id string, _ domain.Currency, _ decimal.Decimal, _ time.Time) error {
		if id == "acc-short" {
			return domain.ErrInsufficientFunds
		}
		return nil
	}

	reconciliation := newReconciliation(f)

	first, err := reconciliation.SettleUnpaidRentals(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Failed != 2 || first.Settled != 0 {
		t.Fatalf("expected both underfunded rentals to fail, got %+v", first)
	}

	second, err := reconciliation.SettleUnpaidRentals(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Settled != 1 {
		t.Fatalf("expected the newer rental to be settled, got %+v", second)
	}

	stored, _ := f.rentals.GetByID(ctx, newest.ID)
	if !stored.Paid {
		t.Error("expected the newest rental to be paid")
	}
}

func TestSettleCharge_SkipsCancelledRental(t *testing.T) {
	f := newRentalFixture(t)
	f.addAccount(t, "acc-1", "1.00", "0")
	f.stockNumbers("0", "wa", "0.20")
	f.issuer.EXPECT().Release(gomock.Any(), gomock.Any()).Return(true, nil)

	ctx := context.Background()
	f.accounts.DebitFunc = func(context.Context, usecase.Transaction, string, domain.Currency, decimal.Decimal, time.Time) error {
		return errors.New("connection reset")
	}

	rental, _ := f.uc.Acquire(ctx, usecase.AcquireRentalInput{AccountID: "acc-1", Route: "0", ServiceCode: "wa"})
	f.accounts.DebitFunc = nil

	result, err := f.uc.Cancel(ctx, rental.ID, usecase.CancelTriggerUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Amount.IsZero() {
		t.Errorf("expected no refund for an unpaid rental, got %s", result.Amount)
	}

	charged, err := f.uc.SettleCharge(ctx, rental.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charged {
		t.Error("expected cancelled rental not to be charged")
	}
	assertDecimal(t, "primary", "1.00", f.balance(t, "acc-1", domain.CurrencyPrimary))
}

func TestGenerateReconciliationReport(t *testing.T) {
	f := newRentalFixture(t)
	f.addAccount(t, "acc-1", "0", "0")
	f.addAccount(t, "acc-2", "3.00", "0")

	if _, err := f.wallet.Deposit(context.Background(), usecase.DepositInput{AccountID: "acc-1", Currency: domain.CurrencySecondary, Amount: dec("1000")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := newReconciliation(f).GenerateReconciliationReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalBalances != 4 {
		t.Errorf("expected 4 balances, got %d", report.TotalBalances)
	}
	if report.ReconciledBalances != 3 {
		t.Errorf("expected 3 reconciled balances, got %d", report.ReconciledBalances)
	}
	if len(report.Discrepancies) != 1 || report.Discrepancies[0].AccountID != "acc-2" {
		t.Errorf("expected acc-2 to be flagged, got %+v", report.Discrepancies)
	}
}
