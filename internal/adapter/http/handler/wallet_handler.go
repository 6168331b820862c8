package handler

import (
	"context"
	"net/http"

	"github.com/iho/numrent/internal/adapter/http/dto"
	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

// WalletService defines the wallet operations used by the handler.
type WalletService interface {
	GetBalances(ctx context.Context, accountID string) (*usecase.Balances, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.LedgerTransaction, error)
	Deposit(ctx context.Context, input usecase.DepositInput) (*domain.LedgerTransaction, error)
}

// WalletHandler handles wallet HTTP requests.
type WalletHandler struct {
	walletUC WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService) *WalletHandler {
	return &WalletHandler{walletUC: walletUC}
}

// Balances handles GET /wallet.
func (h *WalletHandler) Balances(w http.ResponseWriter, r *http.Request) {
	accountID, ok := targetAccount(w, r)
	if !ok {
		return
	}

	balances, err := h.walletUC.GetBalances(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromUseCase(balances))
}

// Transactions handles GET /wallet/transactions.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := targetAccount(w, r)
	if !ok {
		return
	}

	entries, err := h.walletUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		AccountID: accountID,
		Limit:     parseIntQuery(r, "limit", 50),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(entries))
}

// targetAccount resolves whose wallet a read is for. Admins may name an
// account with ?account_id=; everyone else reads their own.
func targetAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := principal(w, r)
	if !ok {
		return "", false
	}
	if id := r.URL.Query().Get("account_id"); id != "" && p.IsAdmin() {
		return id, true
	}
	return p.AccountID, true
}
