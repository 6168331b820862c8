package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopspring/decimal"

	"github.com/iho/numrent/internal/adapter/http/dto"
	"github.com/iho/numrent/internal/usecase"
)

// PricingService quotes route/service pairs.
type PricingService interface {
	Quote(ctx context.Context, route, serviceCode string) (*usecase.Quote, error)
}

// PricingHandler serves price quotes.
type PricingHandler struct {
	pricingUC PricingService
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(pricingUC PricingService) *PricingHandler {
	return &PricingHandler{pricingUC: pricingUC}
}

// Quote handles GET /prices/{route}/{service}.
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.pricingUC.Quote(r.Context(), chi.URLParam(r, "route"), chi.URLParam(r, "service"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.QuoteFromUseCase(quote))
}

// PricingAdminService changes pricing settings.
type PricingAdminService interface {
	SetMarkup(ctx context.Context, pct decimal.Decimal) (*usecase.PricingChange, error)
	SetExchangeRate(ctx context.Context, rate decimal.Decimal) (*usecase.PricingChange, error)
	SetOverride(ctx context.Context, route, serviceCode string, price decimal.Decimal) (*usecase.PricingChange, error)
	DeleteOverride(ctx context.Context, route, serviceCode string) (*usecase.PricingChange, error)
}

// PricingAdminHandler serves the operator pricing endpoints.
type PricingAdminHandler struct {
	adminUC PricingAdminService
}

// NewPricingAdminHandler creates a new PricingAdminHandler.
func NewPricingAdminHandler(adminUC PricingAdminService) *PricingAdminHandler {
	return &PricingAdminHandler{adminUC: adminUC}
}

// SetMarkup handles PUT /admin/pricing/markup.
func (h *PricingAdminHandler) SetMarkup(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.adminUC.SetMarkup)
}

// SetExchangeRate handles PUT /admin/pricing/exchange-rate.
func (h *PricingAdminHandler) SetExchangeRate(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, h.adminUC.SetExchangeRate)
}

// SetOverride handles PUT /admin/pricing/overrides/{route}/{service}.
func (h *PricingAdminHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	route, service := chi.URLParam(r, "route"), chi.URLParam(r, "service")
	h.write(w, r, func(ctx context.Context, price decimal.Decimal) (*usecase.PricingChange, error) {
		return h.adminUC.SetOverride(ctx, route, service, price)
	})
}

// DeleteOverride handles DELETE /admin/pricing/overrides/{route}/{service}.
func (h *PricingAdminHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	change, err := h.adminUC.DeleteOverride(r.Context(), chi.URLParam(r, "route"), chi.URLParam(r, "service"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PricingChangeFromUseCase(change))
}

func (h *PricingAdminHandler) write(
	w http.ResponseWriter,
	r *http.Request,
	apply func(context.Context, decimal.Decimal) (*usecase.PricingChange, error),
) {
	var req dto.PricingValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	value, err := req.Decimal()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	change, err := apply(r.Context(), value)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PricingChangeFromUseCase(change))
}
