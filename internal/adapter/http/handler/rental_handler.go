package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/numrent/internal/adapter/http/dto"
	"github.com/iho/numrent/internal/domain"
	"github.com/iho/numrent/internal/usecase"
)

// RentalService defines the rental operations used by the handler.
type RentalService interface {
	Acquire(ctx context.Context, input usecase.AcquireRentalInput) (*domain.Rental, error)
	GetRental(ctx context.Context, rentalID string) (*domain.Rental, error)
	ListActiveRentals(ctx context.Context, accountID string) ([]*domain.Rental, error)
	Cancel(ctx context.Context, rentalID string, trigger usecase.CancelTrigger) (*domain.RefundResult, error)
}

// RentalHandler handles rental HTTP requests.
type RentalHandler struct {
	rentalUC RentalService
}

// NewRentalHandler creates a new RentalHandler.
func NewRentalHandler(rentalUC RentalService) *RentalHandler {
	return &RentalHandler{rentalUC: rentalUC}
}

// Acquire handles POST /rentals. The rental is always charged to the
// calling account, including under delegation.
func (h *RentalHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req dto.AcquireRentalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rental, err := h.rentalUC.Acquire(r.Context(), req.ToUseCaseInput(p.AccountID))
	if err != nil {
		if errors.Is(err, domain.ErrChargeIncomplete) && rental != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
				Error:    domain.Reason(err),
				Message:  err.Error(),
				RentalID: rental.ID,
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RentalFromDomain(rental))
}

// List handles GET /rentals and returns the caller's active rentals.
func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	accountID := p.AccountID
	if p.IsAdmin() && r.URL.Query().Get("account_id") != "" {
		accountID = r.URL.Query().Get("account_id")
	}

	rentals, err := h.rentalUC.ListActiveRentals(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RentalsFromDomain(rentals))
}

// Get handles GET /rentals/{id}.
func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	rental, err := h.rentalUC.GetRental(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RentalFromDomain(rental))
}

// Cancel handles POST /rentals/{id}/cancel.
func (h *RentalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	result, err := h.rentalUC.Cancel(r.Context(), chi.URLParam(r, "id"), usecase.CancelTriggerUser)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RefundFromDomain(result))
}
