package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/go-chi/chi/v5"
)

type StatusChanger interface {
	UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.SubOrder, error)
	Cancel(ctx context.Context, req domain.CancelRequest) error
}

type OrderReader interface {
	SubOrder(ctx context.Context, orderNumber string, actor domain.Actor) (*domain.SubOrder, error)
	OrderGroup(ctx context.Context, orderGroupNumber string, actor domain.Actor) (*domain.MasterOrder, error)
	ListOrders(ctx context.Context, actor domain.Actor, limit int) ([]*domain.MasterOrder, error)
}

type OrdersHandler struct {
	status  StatusChanger
	orders  OrderReader
	timeout time.Duration
}

func NewOrdersHandler(status StatusChanger, orders OrderReader, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		status:  status,
		orders:  orders,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type CancelRequestDTO struct {
	Reason string `json:"reason"`
}

// PUT /api/v1/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "missing_status", "status is required")
		return
	}

	so, err := h.status.UpdateStatus(ctx, domain.UpdateStatusRequest{
		OrderNumber: orderID,
		NewStatus:   domain.OrderStatus(req.Status),
		Notes:       req.Notes,
		Actor:       actor,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, convertSubOrder(so))
}

// PUT /api/v1/orders/{order_id}/cancel
func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req CancelRequestDTO
	if !decodeJSON(w, r, &req, true) {
		return
	}

	if err := h.status.Cancel(ctx, domain.CancelRequest{
		OrderNumber: orderID,
		Reason:      req.Reason,
		Actor:       actor,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	so, err := h.orders.SubOrder(ctx, orderID, actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, convertSubOrder(so))
}

// GET /api/v1/order-groups/{order_group_number}
func (h *OrdersHandler) GetOrderGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	number := chi.URLParam(r, "order_group_number")
	if number == "" {
		respondError(w, http.StatusBadRequest, "missing_order_group_number", "order_group_number is required")
		return
	}

	m, err := h.orders.OrderGroup(ctx, number, actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, convertMasterOrder(m))
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	orders, err := h.orders.ListOrders(ctx, actor, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dtos := make([]MasterOrderDTO, 0, len(orders))
	for _, m := range orders {
		dtos = append(dtos, convertMasterOrder(m))
	}
	respondJSON(w, http.StatusOK, dtos)
}
