package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/metrics"
)

// WalletUseCase owns the dual-currency balances and their transaction
// history. Every balance change goes through Debit or Credit, which are
// single atomic updates in storage.
type WalletUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	txRepo      LedgerTransactionRepository
	idGen       IDGenerator
	audit       auditor
	metrics     *metrics.Metrics
}

// NewWalletUseCase creates a new WalletUseCase.
func NewWalletUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	txRepo LedgerTransactionRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *WalletUseCase {
	return &WalletUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		idGen:       idGen,
		audit:       auditor{repo: auditRepo, idGen: idGen},
		metrics:     metrics,
	}
}

// Balances is a point-in-time view of both wallet balances.
type Balances struct {
	AccountID string
	Primary   decimal.Decimal
	Secondary decimal.Decimal
	AsOf      time.Time
}

// GetBalances returns both balances of an account.
func (uc *WalletUseCase) GetBalances(ctx context.Context, accountID string) (*Balances, error) {
	if err := checkAccess(ctx, accountID); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &Balances{
		AccountID: account.ID,
		Primary:   account.PrimaryBalance,
		Secondary: account.SecondaryBalance,
		AsOf:      account.UpdatedAt,
	}, nil
}

// SelectChargeCurrency picks the currency a price would be charged in
// against the account's current balances.
func (uc *WalletUseCase) SelectChargeCurrency(ctx context.Context, accountID string, price, exchangeRate decimal.Decimal) (domain.Currency, decimal.Decimal, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return "", decimal.Zero, err
	}
	return account.SelectChargeCurrency(price, exchangeRate)
}

// Debit subtracts amount from one balance. It fails with
// domain.ErrInsufficientFunds rather than driving the balance negative.
func (uc *WalletUseCase) Debit(ctx context.Context, tx Transaction, accountID string, currency domain.Currency, amount decimal.Decimal) error {
	if !currency.IsValid() {
		return domain.ErrInvalidCurrency
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}

	if err := uc.accountRepo.Debit(ctx, tx, accountID, currency, amount, time.Now().UTC()); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.Charges.WithLabelValues(currency.String()).Inc()
	}

	return nil
}

// Credit adds amount to one balance. A zero amount is a no-op.
func (uc *WalletUseCase) Credit(ctx context.Context, tx Transaction, accountID string, currency domain.Currency, amount decimal.Decimal) error {
	if !currency.IsValid() {
		return domain.ErrInvalidCurrency
	}
	if amount.IsNegative() {
		return domain.ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}

	return uc.accountRepo.Credit(ctx, tx, accountID, currency, amount, time.Now().UTC())
}

// RecordTransaction appends entry to the history. ID and CreatedAt are
// filled in when empty.
func (uc *WalletUseCase) RecordTransaction(ctx context.Context, tx Transaction, entry *domain.LedgerTransaction) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uc.idGen.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return uc.txRepo.Create(ctx, tx, entry)
}

// DepositInput represents input for a wallet top-up.
type DepositInput struct {
	AccountID string
	Currency  domain.Currency
	Amount    decimal.Decimal
	Reference string
}

// Deposit credits a balance and records the deposit in one database
// transaction.
func (uc *WalletUseCase) Deposit(ctx context.Context, input DepositInput) (*domain.LedgerTransaction, error) {
	if !input.Currency.IsValid() {
		return nil, domain.ErrInvalidCurrency
	}
	if err := domain.ValidateAmount(input.Amount, domain.MaxDepositAmount); err != nil {
		return nil, err
	}

	if _, err := uc.accountRepo.GetByID(ctx, input.AccountID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(txCtx)

	if err := uc.Credit(txCtx, tx, input.AccountID, input.Currency, input.Amount); err != nil {
		return nil, err
	}

	entry := &domain.LedgerTransaction{
		AccountID: input.AccountID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    input.Amount,
		Currency:  input.Currency,
		Reference: input.Reference,
	}
	if err := uc.RecordTransaction(txCtx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.audit.record(txCtx, tx, domain.AuditActionWalletDeposit, "account", input.AccountID, entry, nil); err != nil {
		return nil, fmt.Errorf("audit deposit: %w", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.Deposits.WithLabelValues(input.Currency.String()).Inc()
	}

	return entry, nil
}

// ListTransactionsInput represents input for listing an account's history.
type ListTransactionsInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListTransactions returns an account's history, newest first.
func (uc *WalletUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.LedgerTransaction, error) {
	if err := checkAccess(ctx, input.AccountID); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.txRepo.ListByAccount(ctx, input.AccountID, limit, offset)
}

// checkAccess rejects callers that may not touch accountID's resources.
// Calls without a principal come from trusted internal callers.
func checkAccess(ctx context.Context, accountID string) error {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil
	}
	if !p.CanAccess(accountID) {
		return domain.ErrForbidden
	}
	return nil
}
