package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/numrent/internal/adapter/http/dto"
	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

// DelegationService issues delegation tokens.
type DelegationService interface {
	Delegate(ctx context.Context, input usecase.DelegateInput) (*usecase.DelegationGrant, error)
}

// ReconciliationService checks balances against the ledger.
type ReconciliationService interface {
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
	SettleUnpaidRentals(ctx context.Context, limit int) (*usecase.SettlementReport, error)
}

// AdminHandler serves operator endpoints: deposits, delegations and
// reconciliation.
type AdminHandler struct {
	walletUC     WalletService
	delegationUC DelegationService
	reconcileUC  ReconciliationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(walletUC WalletService, delegationUC DelegationService, reconcileUC ReconciliationService) *AdminHandler {
	return &AdminHandler{
		walletUC:     walletUC,
		delegationUC: delegationUC,
		reconcileUC:  reconcileUC,
	}
}

// Deposit handles POST /admin/accounts/{id}/deposits.
func (h *AdminHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entry, err := h.walletUC.Deposit(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(entry))
}

// Delegate handles POST /admin/delegations.
func (h *AdminHandler) Delegate(w http.ResponseWriter, r *http.Request) {
	var req dto.DelegationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		if errors.Is(err, dto.ErrInvalidTTL) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}

	grant, err := h.delegationUC.Delegate(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DelegationFromUseCase(grant))
}

// Reconciliation handles GET /admin/reconciliation.
func (h *AdminHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcileUC.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromUseCase(report))
}

// Settle handles POST /admin/reconciliation/settle. An empty body uses the
// default batch size.
func (h *AdminHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Limit < 0 {
		writeDomainError(w, domain.ErrInvalidAmount)
		return
	}

	report, err := h.reconcileUC.SettleUnpaidRentals(r.Context(), req.Limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromUseCase(report))
}
