package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/service"
)

// IdempotencyKeyHeader makes a checkout safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	checkout service.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddressID int64  `json:"shipping_address_id"`
	BillingAddressID  *int64 `json:"billing_address_id,omitempty"`
	PaymentMethodCode string `json:"payment_method_code"`
	Notes             string `json:"notes,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	if actor.Role != domain.RoleBuyer {
		respondError(w, http.StatusForbidden, "forbidden", "only buyers can check out")
		return
	}

	var req CheckoutRequestDTO
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.ShippingAddressID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_shipping_address", "shipping_address_id must be positive")
		return
	}
	if req.BillingAddressID != nil && *req.BillingAddressID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_billing_address", "billing_address_id must be positive")
		return
	}
	if req.PaymentMethodCode == "" {
		respondError(w, http.StatusBadRequest, "missing_payment_method", "payment_method_code is required")
		return
	}

	res, err := h.checkout.Checkout(ctx, &domain.CheckoutRequest{
		UserID:            actor.UserID,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		PaymentMethodCode: req.PaymentMethodCode,
		Notes:             req.Notes,
		IdempotencyKey:    r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertCheckoutResult(res))
}
