package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/infrastructure/metrics"
)

// CancelTrigger records why a rental was cancelled.
type CancelTrigger string

const (
	CancelTriggerUser    CancelTrigger = "user"
	CancelTriggerExpired CancelTrigger = "expired"
	CancelTriggerIssuer  CancelTrigger = "issuer"
	CancelTriggerResume  CancelTrigger = "resume"
)

// RentalUseCaseConfig holds the collaborators of RentalUseCase.
type RentalUseCaseConfig struct {
	TxManager TransactionManager
	Rentals   RentalRepository
	Accounts  AccountRepository
	Wallet    *WalletUseCase
	Pricing   *PricingUseCase
	Issuer    NumberIssuer
	AuditRepo AuditRepository
	IDGen     IDGenerator
	Retrier   Retrier
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	RentalTTL time.Duration
	Clock     func() time.Time
}

// RentalUseCase drives a rental from acquisition to a terminal state.
type RentalUseCase struct {
	txManager   TransactionManager
	rentalRepo  RentalRepository
	accountRepo AccountRepository
	wallet      *WalletUseCase
	pricing     *PricingUseCase
	issuer      NumberIssuer
	idGen       IDGenerator
	retrier     Retrier
	audit       auditor
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	rentalTTL   time.Duration
	now         func() time.Time
}

// NewRentalUseCase creates a new RentalUseCase.
func NewRentalUseCase(cfg RentalUseCaseConfig) *RentalUseCase {
	if cfg.RentalTTL <= 0 {
		cfg.RentalTTL = DefaultRentalTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &RentalUseCase{
		txManager:   cfg.TxManager,
		rentalRepo:  cfg.Rentals,
		accountRepo: cfg.Accounts,
		wallet:      cfg.Wallet,
		pricing:     cfg.Pricing,
		issuer:      cfg.Issuer,
		idGen:       cfg.IDGen,
		retrier:     cfg.Retrier,
		audit:       auditor{repo: cfg.AuditRepo, idGen: cfg.IDGen},
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("component", "rentals").Logger(),
		rentalTTL:   cfg.RentalTTL,
		now:         cfg.Clock,
	}
}

// AcquireRentalInput represents input for renting a number.
type AcquireRentalInput struct {
	AccountID   string
	Route       string
	ServiceCode string
	// QuoteToken is a signed quote from PricingUseCase.Quote. While it is
	// valid the caller never pays more than the price it carries.
	QuoteToken string
	// QuotedPrice, when set without a token, caps the charge: acquisition
	// fails with domain.ErrPriceChanged if the current price is higher.
	QuotedPrice *decimal.Decimal
}

// Acquire rents a number and charges the account for it.
//
// Nothing is written before the issuer hands out a number. After that the
// rental is created first, then its charge posting, then the debit, so a
// failed debit leaves a visible unpaid rental rather than a silent one. In
// that case both the rental and an error wrapping domain.ErrChargeIncomplete
// are returned.
func (uc *RentalUseCase) Acquire(ctx context.Context, input AcquireRentalInput) (*domain.Rental, error) {
	start := time.Now()

	rental, err := uc.acquire(ctx, input)

	if err != nil && uc.metrics != nil {
		uc.metrics.AcquireErrors.WithLabelValues(domain.Reason(err)).Inc()
	}
	if uc.metrics != nil {
		uc.metrics.AcquireDuration.Observe(time.Since(start).Seconds())
	}

	if auditErr := uc.audit.record(ctx, nil, domain.AuditActionRentalAcquire, "rental", rentalID(rental), rental, err); auditErr != nil {
		uc.logger.Error().Err(auditErr).Str("rental_id", rentalID(rental)).Msg("failed to audit rental acquisition")
	}

	return rental, err
}

func (uc *RentalUseCase) acquire(ctx context.Context, input AcquireRentalInput) (*domain.Rental, error) {
	// 1. Validate input before touching the issuer
	route, serviceCode, err := normalizeRouteService(input.Route, input.ServiceCode)
	if err != nil {
		return nil, err
	}
	if input.QuotedPrice != nil && input.QuotedPrice.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if err := checkAccess(ctx, input.AccountID); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if account.IsBlocked {
		return nil, domain.ErrAccountBlocked
	}

	// 2. Price against a fresh configuration snapshot
	quote, err := uc.pricing.Resolve(ctx, route, serviceCode)
	if err != nil {
		return nil, err
	}

	price, quoted, err := uc.agreedPrice(input, route, serviceCode, quote)
	if err != nil {
		return nil, err
	}
	free := price.IsZero()

	// 3. Refuse early if neither balance covers the price
	if !free {
		if _, _, err := account.SelectChargeCurrency(price, quote.ExchangeRate); err != nil {
			return nil, err
		}
	}

	// 4. Obtain the number; provider errors are returned unchanged
	issued, err := uc.issuer.Issue(ctx, route, serviceCode, quote.WholesaleCost)
	if err != nil {
		return nil, err
	}

	// 5. Settle the charge currency against current balances
	currency, amount := domain.CurrencyPrimary, decimal.Zero
	if !free {
		currency, amount, err = uc.wallet.SelectChargeCurrency(ctx, input.AccountID, price, quote.ExchangeRate)
		if err != nil {
			uc.releaseQuietly(ctx, issued.IssuerID, "")
			return nil, err
		}
	}

	now := uc.now()
	expiresAt := now.Add(uc.rentalTTL)
	if issued.ExpiresAt != nil && issued.ExpiresAt.After(now) {
		expiresAt = issued.ExpiresAt.UTC()
	}

	wholesale := quote.WholesaleCost
	if issued.WholesaleCost.IsPositive() {
		wholesale = issued.WholesaleCost
	}

	rental := &domain.Rental{
		ID:                      uc.idGen.Generate(),
		AccountID:               input.AccountID,
		Route:                   route,
		ServiceCode:             serviceCode,
		IssuedNumber:            issued.Number,
		IssuerID:                issued.IssuerID,
		WholesaleCost:           wholesale,
		Price:                   price,
		ChargedAmount:           amount,
		ChargedCurrency:         currency,
		ExchangeRate:            quote.ExchangeRate,
		IsOverridePrice:         quote.IsOverride && !quoted,
		MarkupPercentageAtIssue: quote.MarkupPercentage,
		State:                   domain.RentalStateWaiting,
		CreatedAt:               now,
		UpdatedAt:               now,
		ExpiresAt:               expiresAt,
	}
	// Nothing to debit, so a free rental is paid from the start.
	if free {
		rental.Paid = true
		rental.PaidAt = &now
	}

	// 6. Ordered commit: rental, charge posting, debit
	if err := uc.rentalRepo.Create(ctx, rental); err != nil {
		uc.releaseQuietly(ctx, issued.IssuerID, "")
		return nil, err
	}
	if free {
		uc.acquired(rental)
		return rental, nil
	}

	rid := rental.ID
	charge := &domain.LedgerTransaction{
		AccountID: rental.AccountID,
		Type:      domain.TransactionTypeRentalCharge,
		Amount:    amount.Neg(),
		Currency:  currency,
		RentalID:  &rid,
		Reference: "rental " + rental.ID,
	}
	if err := uc.wallet.RecordTransaction(ctx, nil, charge); err != nil {
		return rental, uc.chargeIncomplete(rental, err)
	}

	charged, err := uc.settleCharge(ctx, rental.ID)
	if err != nil {
		return rental, uc.chargeIncomplete(rental, err)
	}
	if !charged {
		// Cancelled before the debit landed.
		return uc.rentalRepo.GetByID(ctx, rental.ID)
	}

	rental.Paid = true
	rental.PaidAt = &now

	uc.acquired(rental)
	return rental, nil
}

// agreedPrice settles what the caller pays against the freshly resolved
// quote. It also reports whether a signed quote lowered the price.
//
// A valid quote token wins when its price is lower, unless that would now
// sell the number below its wholesale cost. A bare quoted price is only a
// ceiling and never lowers the charge.
func (uc *RentalUseCase) agreedPrice(input AcquireRentalInput, route, serviceCode string, quote *Quote) (decimal.Decimal, bool, error) {
	price := quote.Price

	if input.QuoteToken == "" {
		if input.QuotedPrice != nil && price.GreaterThan(domain.Round2(*input.QuotedPrice)) {
			return decimal.Zero, false, fmt.Errorf("%w: now %s", domain.ErrPriceChanged, price.StringFixed(2))
		}
		return price, false, nil
	}

	agreed, err := uc.pricing.VerifyQuote(input.QuoteToken, route, serviceCode)
	if err != nil {
		return decimal.Zero, false, err
	}
	if input.QuotedPrice != nil && !domain.Round2(*input.QuotedPrice).Equal(agreed) {
		return decimal.Zero, false, fmt.Errorf("%w: quoted price does not match the quote", domain.ErrInvalidQuote)
	}
	if !agreed.LessThan(price) {
		return price, false, nil
	}
	if agreed.LessThan(quote.WholesaleCost) {
		return decimal.Zero, false, fmt.Errorf("%w: now %s", domain.ErrPriceChanged, price.StringFixed(2))
	}
	return agreed, true, nil
}

func (uc *RentalUseCase) acquired(rental *domain.Rental) {
	if uc.metrics != nil {
		uc.metrics.RentalsAcquired.WithLabelValues(rental.ChargedCurrency.String()).Inc()
		if rental.IsOverridePrice {
			uc.metrics.OverridePriced.Inc()
		}
	}

	uc.logger.Info().
		Str("rental_id", rental.ID).
		Str("account_id", rental.AccountID).
		Str("route", rental.Route).
		Str("service", rental.ServiceCode).
		Str("price", rental.Price.StringFixed(2)).
		Str("charged", rental.ChargedAmount.StringFixed(2)).
		Str("currency", rental.ChargedCurrency.String()).
		Msg("rental acquired")
}

func (uc *RentalUseCase) chargeIncomplete(rental *domain.Rental, err error) error {
	if uc.metrics != nil {
		uc.metrics.ChargesIncomplete.Inc()
	}
	uc.logger.Error().
		Err(err).
		Str("rental_id", rental.ID).
		Str("account_id", rental.AccountID).
		Str("amount", rental.ChargedAmount.StringFixed(2)).
		Str("currency", rental.ChargedCurrency.String()).
		Msg("rental committed without completed charge")
	return fmt.Errorf("%w: %w", domain.ErrChargeIncomplete, err)
}

// SettleCharge debits an unpaid rental and marks it paid. It reports
// whether a debit happened; paid and cancelled rentals are left alone.
func (uc *RentalUseCase) SettleCharge(ctx context.Context, rentalID string) (bool, error) {
	rental, err := uc.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return false, err
	}
	if rental.Paid {
		return false, nil
	}

	entries, err := uc.wallet.txRepo.ListByRental(ctx, rentalID)
	if err != nil {
		return false, err
	}
	if !hasPosting(entries, domain.TransactionTypeRentalCharge) {
		rid := rental.ID
		charge := &domain.LedgerTransaction{
			AccountID: rental.AccountID,
			Type:      domain.TransactionTypeRentalCharge,
			Amount:    rental.ChargedAmount.Neg(),
			Currency:  rental.ChargedCurrency,
			RentalID:  &rid,
			Reference: "rental " + rental.ID,
		}
		if err := uc.wallet.RecordTransaction(ctx, nil, charge); err != nil {
			return false, err
		}
	}

	return uc.settleCharge(ctx, rentalID)
}

func (uc *RentalUseCase) settleCharge(ctx context.Context, rentalID string) (bool, error) {
	charged := false

	err := uc.withRetry(ctx, func() error {
		charged = false

		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer tx.Rollback(txCtx)

		rental, err := uc.rentalRepo.GetByIDForUpdate(txCtx, tx, rentalID)
		if err != nil {
			return err
		}
		// A finished cancellation refunded nothing, so it must not be
		// charged afterwards.
		if rental.Paid || rental.State == domain.RentalStateCancelled {
			return nil
		}

		if err := uc.wallet.Debit(txCtx, tx, rental.AccountID, rental.ChargedCurrency, rental.ChargedAmount); err != nil {
			return err
		}
		if err := uc.rentalRepo.MarkPaid(txCtx, tx, rental.ID, uc.now()); err != nil {
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}
		charged = true
		return nil
	})

	return charged, err
}

// ApplyStatus records a status report for a waiting rental. Reports for
// rentals that already left waiting are ignored; the current rental is
// returned with no error. Cancellation goes through Cancel.
func (uc *RentalUseCase) ApplyStatus(ctx context.Context, rentalID string, state domain.RentalState, code string) (*domain.Rental, error) {
	if state != domain.RentalStateCompleted && state != domain.RentalStateError {
		return nil, fmt.Errorf("%w: %s must go through cancel", domain.ErrInvalidStateTransition, state)
	}
	if state == domain.RentalStateCompleted && code == "" {
		return nil, domain.ErrMissingCode
	}

	rental, err := uc.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.State != domain.RentalStateWaiting {
		return rental, nil
	}

	now := uc.now()
	if state == domain.RentalStateCompleted {
		err = rental.Complete(code, now)
	} else {
		err = rental.Fail(now)
	}
	if err != nil {
		return nil, err
	}

	updated, err := uc.rentalRepo.UpdateState(ctx, nil, rental, domain.RentalStateWaiting)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost a race with another transition; report what won.
		return uc.rentalRepo.GetByID(ctx, rentalID)
	}

	if uc.metrics != nil {
		if state == domain.RentalStateCompleted {
			uc.metrics.RentalsCompleted.Inc()
		} else {
			uc.metrics.RentalsFailed.Inc()
		}
	}

	uc.logger.Info().
		Str("rental_id", rental.ID).
		Str("state", string(rental.State)).
		Msg("rental status applied")

	return rental, nil
}

// Cancel cancels a waiting rental and refunds exactly what was charged, in
// the currency it was charged in. Repeated calls return the recorded
// outcome without crediting again. A refund that does not complete leaves
// the rental in cancelling and returns an error wrapping
// domain.ErrRefundIncomplete; calling Cancel again resumes it.
func (uc *RentalUseCase) Cancel(ctx context.Context, rentalID string, trigger CancelTrigger) (*domain.RefundResult, error) {
	rental, err := uc.GetRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	result, err := uc.cancel(ctx, rental, trigger)

	if auditErr := uc.audit.record(ctx, nil, domain.AuditActionRentalCancel, "rental", rentalID, result, err); auditErr != nil {
		uc.logger.Error().Err(auditErr).Str("rental_id", rentalID).Msg("failed to audit rental cancellation")
	}

	return result, err
}

func (uc *RentalUseCase) cancel(ctx context.Context, rental *domain.Rental, trigger CancelTrigger) (*domain.RefundResult, error) {
	// 1. Claim the rental with a compare-and-set on its state
	for rental.State == domain.RentalStateWaiting {
		if err := rental.BeginCancel(uc.now()); err != nil {
			return nil, err
		}

		updated, err := uc.rentalRepo.UpdateState(ctx, nil, rental, domain.RentalStateWaiting)
		if err != nil {
			return nil, err
		}
		if updated {
			break
		}

		rental, err = uc.rentalRepo.GetByID(ctx, rental.ID)
		if err != nil {
			return nil, err
		}
	}

	switch rental.State {
	case domain.RentalStateCancelled:
		return settledResult(rental), nil
	case domain.RentalStateCompleted, domain.RentalStateError:
		return nil, fmt.Errorf("%w: rental is %s", domain.ErrInvalidStateTransition, rental.State)
	}

	// 2. Release the number; the refund does not depend on it
	released := uc.releaseQuietly(ctx, rental.IssuerID, rental.ID)

	// 3. Refund and finish under a row lock
	result, err := uc.finishCancel(ctx, rental.ID)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RefundsIncomplete.Inc()
		}
		uc.logger.Error().
			Err(err).
			Str("rental_id", rental.ID).
			Str("account_id", rental.AccountID).
			Msg("rental left in cancelling, refund did not complete")
		return nil, fmt.Errorf("%w: %w", domain.ErrRefundIncomplete, err)
	}

	result.IssuerReleased = released
	if result.AlreadySettled {
		return result, nil
	}

	if uc.metrics != nil {
		uc.metrics.RentalsCancelled.WithLabelValues(string(trigger)).Inc()
		if result.Amount.IsPositive() {
			uc.metrics.Refunds.WithLabelValues(result.Currency.String()).Inc()
		}
	}

	uc.logger.Info().
		Str("rental_id", rental.ID).
		Str("trigger", string(trigger)).
		Str("refund", result.Amount.StringFixed(2)).
		Str("currency", result.Currency.String()).
		Bool("issuer_released", released).
		Msg("rental cancelled")

	return result, nil
}

func (uc *RentalUseCase) finishCancel(ctx context.Context, rentalID string) (*domain.RefundResult, error) {
	var result *domain.RefundResult

	err := uc.withRetry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer tx.Rollback(txCtx)

		rental, err := uc.rentalRepo.GetByIDForUpdate(txCtx, tx, rentalID)
		if err != nil {
			return err
		}

		switch rental.State {
		case domain.RentalStateCancelled:
			result = settledResult(rental)
			return nil
		case domain.RentalStateCancelling:
		default:
			return fmt.Errorf("%w: rental is %s", domain.ErrInvalidStateTransition, rental.State)
		}

		refund := rental.RefundDue()
		if refund.IsPositive() {
			if err := uc.wallet.Credit(txCtx, tx, rental.AccountID, rental.ChargedCurrency, refund); err != nil {
				return err
			}

			rid := rental.ID
			entry := &domain.LedgerTransaction{
				AccountID: rental.AccountID,
				Type:      domain.TransactionTypeRefund,
				Amount:    refund,
				Currency:  rental.ChargedCurrency,
				RentalID:  &rid,
				Reference: "refund " + rental.ID,
			}
			if err := uc.wallet.RecordTransaction(txCtx, tx, entry); err != nil {
				return err
			}
		}

		if err := rental.FinishCancel(refund, uc.now()); err != nil {
			return err
		}
		updated, err := uc.rentalRepo.UpdateState(txCtx, tx, rental, domain.RentalStateCancelling)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: rental changed while locked", domain.ErrInvalidStateTransition)
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = &domain.RefundResult{
			RentalID:    rental.ID,
			State:       rental.State,
			Amount:      refund,
			Currency:    rental.ChargedCurrency,
			CancelledAt: rental.CancelledAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *RentalUseCase) releaseQuietly(ctx context.Context, issuerID, rentalID string) bool {
	if issuerID == "" {
		return false
	}

	released, err := uc.issuer.Release(ctx, issuerID)
	if err != nil {
		uc.logger.Warn().
			Err(err).
			Str("rental_id", rentalID).
			Str("issuer_id", issuerID).
			Msg("failed to release number with issuer")
		return false
	}
	return released
}

func (uc *RentalUseCase) withRetry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}

// GetRental returns a rental the caller is allowed to see. Rentals of other
// accounts are reported as not found.
func (uc *RentalUseCase) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	rental, err := uc.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if err := checkAccess(ctx, rental.AccountID); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return nil, domain.ErrRentalNotFound
		}
		return nil, err
	}
	return rental, nil
}

// ListActiveRentals returns the account's rentals that are not yet terminal.
func (uc *RentalUseCase) ListActiveRentals(ctx context.Context, accountID string) ([]*domain.Rental, error) {
	if err := checkAccess(ctx, accountID); err != nil {
		return nil, err
	}
	return uc.rentalRepo.ListActiveByAccount(ctx, accountID)
}

// ListPollable returns rentals the status poller has to look at: every
// waiting rental, and cancelling rentals untouched for stuckAfter.
func (uc *RentalUseCase) ListPollable(ctx context.Context, stuckAfter time.Duration, limit int) ([]*domain.Rental, error) {
	return uc.rentalRepo.ListPollable(ctx, uc.now().Add(-stuckAfter), limit)
}

// MarkPolled moves the rental to the back of the poll order.
func (uc *RentalUseCase) MarkPolled(ctx context.Context, rentalID string) error {
	return uc.rentalRepo.TouchAttempt(ctx, rentalID, uc.now())
}

func settledResult(rental *domain.Rental) *domain.RefundResult {
	amount := decimal.Zero
	if rental.RefundAmount != nil {
		amount = *rental.RefundAmount
	}
	return &domain.RefundResult{
		RentalID:       rental.ID,
		State:          rental.State,
		Amount:         amount,
		Currency:       rental.ChargedCurrency,
		AlreadySettled: true,
		CancelledAt:    rental.CancelledAt,
	}
}

func hasPosting(entries []*domain.LedgerTransaction, typ domain.TransactionType) bool {
	for _, e := range entries {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func rentalID(r *domain.Rental) string {
	if r == nil {
		return ""
	}
	return r.ID
}
