package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/cart"
	"github.com/fjod/go_cart/marketplace/internal/catalog"
	"github.com/go-chi/chi/v5"
)

type CartStore interface {
	Snapshot(ctx context.Context, userID int64) ([]domain.CartLine, error)
	AddLine(ctx context.Context, userID int64, line domain.CartLine) error
	RemoveLine(ctx context.Context, userID int64, variantID int64) error
}

type VariantLookup interface {
	Lookup(ctx context.Context, variantID int64) (domain.VariantInfo, error)
}

type CartHandler struct {
	cart    CartStore
	catalog VariantLookup
	timeout time.Duration
}

func NewCartHandler(cart CartStore, catalog VariantLookup, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		catalog: catalog,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int32 `json:"quantity"`
}

// POST /api/v1/cart/items sets the quantity of a variant, capturing its current price.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.VariantID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	info, err := h.catalog.Lookup(ctx, req.VariantID)
	if errors.Is(err, catalog.ErrVariantNotFound) || (err == nil && !info.Active) {
		handleServiceError(w, r, &domain.VariantUnavailableError{VariantID: req.VariantID})
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.cart.AddLine(ctx, actor.UserID, domain.CartLine{
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		UnitPrice: info.Price,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.respondCart(ctx, w, r, actor.UserID, http.StatusCreated)
}

// DELETE /api/v1/cart/items/{variant_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	variantID, err := strconv.ParseInt(chi.URLParam(r, "variant_id"), 10, 64)
	if err != nil || variantID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id must be positive")
		return
	}

	err = h.cart.RemoveLine(ctx, actor.UserID, variantID)
	if errors.Is(err, cart.ErrLineNotFound) {
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	h.respondCart(ctx, w, r, actor.UserID, http.StatusOK)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, status int) {
	lines, err := h.cart.Snapshot(ctx, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	dtos := make([]CartLineDTO, 0, len(lines))
	for _, l := range lines {
		dtos = append(dtos, CartLineDTO{
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
			AddedAt:   timestamp(l.AddedAt),
		})
	}
	respondJSON(w, status, dtos)
}
