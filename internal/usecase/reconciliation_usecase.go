package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/metrics"
)

const reconcilePageSize = 100

// ReconciliationUseCase checks stored balances against the transaction
// history and completes charges that never went through.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	txRepo      LedgerTransactionRepository
	rentalRepo  RentalRepository
	rentals     *RentalUseCase
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	txRepo LedgerTransactionRepository,
	rentalRepo RentalRepository,
	rentals *RentalUseCase,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		rentalRepo:  rentalRepo,
		rentals:     rentals,
		metrics:     metrics,
		logger:      logger.With().Str("component", "reconciliation").Logger(),
	}
}

// ReconciliationResult represents the result of a reconciliation check for
// one balance of one account.
type ReconciliationResult struct {
	AccountID         string
	Currency          domain.Currency
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Unsettled         decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount compares each stored balance with the sum of the
// account's postings. Charge postings of rentals whose debit never
// completed are added back, since no money moved for them.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) ([]*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sums, err := uc.txRepo.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	unsettled, err := uc.txRepo.SumUnsettledCharges(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	results := make([]*ReconciliationResult, 0, 2)

	for _, currency := range []domain.Currency{domain.CurrencyPrimary, domain.CurrencySecondary} {
		recorded := account.Balance(currency)
		calculated := sums[currency].Add(unsettled[currency])
		diff := recorded.Sub(calculated)

		results = append(results, &ReconciliationResult{
			AccountID:         accountID,
			Currency:          currency,
			RecordedBalance:   recorded,
			CalculatedBalance: calculated,
			Unsettled:         unsettled[currency],
			Difference:        diff,
			IsReconciled:      diff.IsZero(),
			LastChecked:       now,
		})
	}

	return results, nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	var results []*ReconciliationResult

	for offset := 0; ; offset += reconcilePageSize {
		accounts, err := uc.accountRepo.List(ctx, reconcilePageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			accountResults, err := uc.ReconcileAccount(ctx, account.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.ID, err)
			}
			results = append(results, accountResults...)
		}

		if len(accounts) < reconcilePageSize {
			break
		}
	}

	return results, nil
}

// SettlementReport summarises a run over unpaid rentals.
type SettlementReport struct {
	Found   int
	Settled int
	Skipped int
	Failed  int
}

// SettleUnpaidRentals retries the debit of rentals that were committed
// without one. Rentals still short of funds stay unpaid, are counted as
// failed and move behind the rest of the queue for the next run.
func (uc *ReconciliationUseCase) SettleUnpaidRentals(ctx context.Context, limit int) (*SettlementReport, error) {
	if limit <= 0 {
		limit = reconcilePageSize
	}

	unpaid, err := uc.rentalRepo.ListUnpaid(ctx, time.Now().UTC().Add(-UnpaidGracePeriod), limit)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.UnpaidRentalsFound.Set(float64(len(unpaid)))
	}

	report := &SettlementReport{Found: len(unpaid)}

	for _, rental := range unpaid {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		charged, err := uc.rentals.SettleCharge(ctx, rental.ID)
		switch {
		case err != nil:
			report.Failed++
			uc.logger.Error().
				Err(err).
				Str("rental_id", rental.ID).
				Str("account_id", rental.AccountID).
				Msg("failed to settle unpaid rental")
			if err := uc.rentalRepo.TouchAttempt(ctx, rental.ID, time.Now().UTC()); err != nil {
				uc.logger.Warn().Err(err).Str("rental_id", rental.ID).Msg("failed to record settlement attempt")
			}
		case charged:
			report.Settled++
		default:
			report.Skipped++
		}
	}

	return report, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalBalances      int
	ReconciledBalances int
	Discrepancies      []*ReconciliationResult
	UnpaidRentals      int
	CheckedAt          time.Time
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	unpaid, err := uc.rentalRepo.ListUnpaid(ctx, time.Now().UTC().Add(-UnpaidGracePeriod), reconcilePageSize)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalBalances: len(results),
		Discrepancies: make([]*ReconciliationResult, 0),
		UnpaidRentals: len(unpaid),
		CheckedAt:     time.Now().UTC(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledBalances++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
