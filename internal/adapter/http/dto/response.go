package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	PrimaryBalance   decimal.Decimal `json:"balance_usd"`
	SecondaryBalance decimal.Decimal `json:"balance_ngn"`
	IsAdmin          bool            `json:"is_admin"`
	IsBlocked        bool            `json:"is_blocked"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		Email:            a.Email,
		PrimaryBalance:   a.PrimaryBalance,
		SecondaryBalance: a.SecondaryBalance,
		IsAdmin:          a.IsAdmin,
		IsBlocked:        a.IsBlocked,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// BalancesResponse represents both wallet balances.
type BalancesResponse struct {
	AccountID string          `json:"account_id"`
	Primary   decimal.Decimal `json:"balance_usd"`
	Secondary decimal.Decimal `json:"balance_ngn"`
	AsOf      time.Time       `json:"as_of"`
}

// BalancesFromUseCase converts wallet balances to response.
func BalancesFromUseCase(b *usecase.Balances) *BalancesResponse {
	return &BalancesResponse{
		AccountID: b.AccountID,
		Primary:   b.Primary,
		Secondary: b.Secondary,
		AsOf:      b.AsOf,
	}
}

// TransactionResponse represents a ledger posting in API responses.
type TransactionResponse struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	RentalID  *string         `json:"rental_id,omitempty"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionFromDomain converts a ledger posting to response.
func TransactionFromDomain(t *domain.LedgerTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:        t.ID,
		AccountID: t.AccountID,
		Type:      string(t.Type),
		Amount:    t.Amount,
		Currency:  t.Currency.String(),
		RentalID:  t.RentalID,
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
	}
}

// TransactionsFromDomain converts ledger postings to responses.
func TransactionsFromDomain(entries []*domain.LedgerTransaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(entries))
	for i, t := range entries {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// RentalResponse represents a rental in API responses.
type RentalResponse struct {
	ID              string           `json:"id"`
	AccountID       string           `json:"account_id"`
	Route           string           `json:"route"`
	Service         string           `json:"service"`
	Number          string           `json:"number"`
	State           string           `json:"state"`
	Code            *string          `json:"code,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	ChargedAmount   decimal.Decimal  `json:"charged_amount"`
	ChargedCurrency string           `json:"charged_currency"`
	IsOverridePrice bool             `json:"is_override_price"`
	Paid            bool             `json:"paid"`
	RefundAmount    *decimal.Decimal `json:"refund_amount,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
}

// RentalFromDomain converts a rental to response. Wholesale cost and markup
// stay internal.
func RentalFromDomain(r *domain.Rental) *RentalResponse {
	return &RentalResponse{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Route:           r.Route,
		Service:         r.ServiceCode,
		Number:          r.IssuedNumber,
		State:           string(r.State),
		Code:            r.Code,
		Price:           r.Price,
		ChargedAmount:   r.ChargedAmount,
		ChargedCurrency: r.ChargedCurrency.String(),
		IsOverridePrice: r.IsOverridePrice,
		Paid:            r.Paid,
		RefundAmount:    r.RefundAmount,
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
		CompletedAt:     r.CompletedAt,
		CancelledAt:     r.CancelledAt,
	}
}

// RentalsFromDomain converts rentals to responses.
func RentalsFromDomain(rentals []*domain.Rental) []*RentalResponse {
	result := make([]*RentalResponse, len(rentals))
	for i, r := range rentals {
		result[i] = RentalFromDomain(r)
	}
	return result
}

// RefundResponse represents the outcome of a cancellation.
type RefundResponse struct {
	RentalID       string          `json:"rental_id"`
	State          string          `json:"state"`
	Amount         decimal.Decimal `json:"refund_amount"`
	Currency       string          `json:"currency"`
	IssuerReleased bool            `json:"issuer_released"`
	AlreadySettled bool            `json:"already_settled"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
}

// RefundFromDomain converts a refund result to response.
func RefundFromDomain(r *domain.RefundResult) *RefundResponse {
	return &RefundResponse{
		RentalID:       r.RentalID,
		State:          string(r.State),
		Amount:         r.Amount,
		Currency:       r.Currency.String(),
		IssuerReleased: r.IssuerReleased,
		AlreadySettled: r.AlreadySettled,
		CancelledAt:    r.CancelledAt,
	}
}

// QuoteResponse represents a priced offer.
type QuoteResponse struct {
	Route          string          `json:"route"`
	Service        string          `json:"service"`
	Price          decimal.Decimal `json:"price"`
	PriceSecondary decimal.Decimal `json:"price_ngn"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	IsOverride     bool            `json:"is_override"`
	QuotedAt       time.Time       `json:"quoted_at"`
	QuoteToken     string          `json:"quote_token,omitempty"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
}

// QuoteFromUseCase converts a quote to response.
func QuoteFromUseCase(q *usecase.Quote) *QuoteResponse {
	resp := &QuoteResponse{
		Route:          q.Route,
		Service:        q.ServiceCode,
		Price:          q.Price,
		PriceSecondary: q.PriceSecondary,
		ExchangeRate:   q.ExchangeRate,
		IsOverride:     q.IsOverride,
		QuotedAt:       q.QuotedAt,
		QuoteToken:     q.Token,
	}
	if q.Token != "" {
		expiresAt := q.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// DelegationResponse carries an issued delegation token.
type DelegationResponse struct {
	Token           string    `json:"token"`
	ActingAs        string    `json:"acting_as"`
	OnBehalfOfAdmin string    `json:"on_behalf_of_admin"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// DelegationFromUseCase converts a delegation grant to response.
func DelegationFromUseCase(g *usecase.DelegationGrant) *DelegationResponse {
	return &DelegationResponse{
		Token:           g.Token,
		ActingAs:        g.Delegation.ActingAs,
		OnBehalfOfAdmin: g.Delegation.OnBehalfOfAdmin,
		ExpiresAt:       g.Delegation.ExpiresAt,
	}
}

// ReconciliationResultResponse represents one checked balance.
type ReconciliationResultResponse struct {
	AccountID         string          `json:"account_id"`
	Currency          string          `json:"currency"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Unsettled         decimal.Decimal `json:"unsettled"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconciliationReportResponse represents a reconciliation report.
type ReconciliationReportResponse struct {
	TotalBalances      int                             `json:"total_balances"`
	ReconciledBalances int                             `json:"reconciled_balances"`
	Discrepancies      []*ReconciliationResultResponse `json:"discrepancies"`
	UnpaidRentals      int                             `json:"unpaid_rentals"`
	CheckedAt          time.Time                       `json:"checked_at"`
}

// ReconciliationReportFromUseCase converts a report to response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResultResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = &ReconciliationResultResponse{
			AccountID:         d.AccountID,
			Currency:          d.Currency.String(),
			RecordedBalance:   d.RecordedBalance,
			CalculatedBalance: d.CalculatedBalance,
			Unsettled:         d.Unsettled,
			Difference:        d.Difference,
			IsReconciled:      d.IsReconciled,
			LastChecked:       d.LastChecked,
		}
	}
	return &ReconciliationReportResponse{
		TotalBalances:      r.TotalBalances,
		ReconciledBalances: r.ReconciledBalances,
		Discrepancies:      discrepancies,
		UnpaidRentals:      r.UnpaidRentals,
		CheckedAt:          r.CheckedAt,
	}
}

// SettlementResponse summarises a settlement run.
type SettlementResponse struct {
	Found   int `json:"found"`
	Settled int `json:"settled"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SettlementFromUseCase converts a settlement report to response.
func SettlementFromUseCase(r *usecase.SettlementReport) *SettlementResponse {
	return &SettlementResponse{
		Found:   r.Found,
		Settled: r.Settled,
		Skipped: r.Skipped,
		Failed:  r.Failed,
	}
}

// PricingChangeResponse echoes an applied pricing change.
type PricingChangeResponse struct {
	Setting     string           `json:"setting"`
	Route       string           `json:"route,omitempty"`
	ServiceCode string           `json:"service_code,omitempty"`
	Value       *decimal.Decimal `json:"value,omitempty"`
	Removed     bool             `json:"removed,omitempty"`
}

// PricingChangeFromUseCase converts a pricing change to response.
func PricingChangeFromUseCase(c *usecase.PricingChange) *PricingChangeResponse {
	return &PricingChangeResponse{
		Setting:     c.Setting,
		Route:       c.Route,
		ServiceCode: c.ServiceCode,
		Value:       c.Value,
		Removed:     c.Removed,
	}
}

// ErrorResponse represents an error in API responses. Error is a stable
// machine-readable reason.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	RentalID string `json:"rental_id,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
