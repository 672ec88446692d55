package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/google/uuid"
)

const masterOrderSelect = `SELECT id, order_group_number, user_id, shipping_address, billing_address,
	payment_method_code, payment_method_name, status, total_amount, currency, notes,
	idempotency_key, created_at, updated_at
	FROM master_orders`

const subOrderSelect = `SELECT id, order_number, master_order_id, shop_id, user_id, status,
	subtotal, shipping_fee, discount, tax, total, created_at, updated_at
	FROM sub_orders`

type scanner interface {
	Scan(dest ...any) error
}

func scanMasterOrder(row scanner) (*domain.MasterOrder, error) {
	var (
		m   domain.MasterOrder
		key sql.NullString
	)
	err := row.Scan(
		&m.ID,
		&m.OrderGroupNumber,
		&m.UserID,
		&m.ShippingAddress,
		&m.BillingAddress,
		&m.PaymentMethodCode,
		&m.PaymentMethodName,
		&m.Status,
		&m.TotalAmount,
		&m.Currency,
		&m.Notes,
		&key,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan master order: %w", err)
	}
	m.IdempotencyKey = key.String
	return &m, nil
}

func scanSubOrder(row scanner) (*domain.SubOrder, error) {
	var so domain.SubOrder
	err := row.Scan(
		&so.ID,
		&so.OrderNumber,
		&so.MasterOrderID,
		&so.ShopID,
		&so.UserID,
		&so.Status,
		&so.Subtotal,
		&so.ShippingFee,
		&so.Discount,
		&so.Tax,
		&so.Total,
		&so.CreatedAt,
		&so.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sub order: %w", err)
	}
	return &so, nil
}

func (r *Repository) GetMasterOrderByNumber(ctx context.Context, orderGroupNumber string) (*domain.MasterOrder, error) {
	m, err := scanMasterOrder(r.db.QueryRowContext(ctx, masterOrderSelect+` WHERE order_group_number = $1`, orderGroupNumber))
	if err != nil {
		return nil, err
	}
	if err := loadMasterChildren(ctx, r.db, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMasterOrdersByUser returns the buyer's orders newest first, each with its full graph.
func (r *Repository) ListMasterOrdersByUser(ctx context.Context, userID int64, limit int) ([]*domain.MasterOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		masterOrderSelect+` WHERE user_id = $1 ORDER BY created_at DESC, order_group_number DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query master orders by user: %w", err)
	}
	defer rows.Close()

	var orders []*domain.MasterOrder
	for rows.Next() {
		m, err := scanMasterOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, m := range orders {
		if err := loadMasterChildren(ctx, r.db, m); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetSubOrderByNumber returns a sub-order with its line items and history.
func (r *Repository) GetSubOrderByNumber(ctx context.Context, orderNumber string) (*domain.SubOrder, error) {
	so, err := scanSubOrder(r.db.QueryRowContext(ctx, subOrderSelect+` WHERE order_number = $1`, orderNumber))
	if err != nil {
		return nil, err
	}
	if so.Items, err = loadLineItems(ctx, r.db, so.ID); err != nil {
		return nil, err
	}
	if so.History, err = loadHistory(ctx, r.db, so.ID); err != nil {
		return nil, err
	}
	return so, nil
}

// loadMasterChildren cascade-loads sub-orders (with items and history) and payments.
func loadMasterChildren(ctx context.Context, q querier, m *domain.MasterOrder) error {
	rows, err := q.QueryContext(ctx, subOrderSelect+` WHERE master_order_id = $1 ORDER BY order_number`, m.ID)
	if err != nil {
		return fmt.Errorf("query sub orders: %w", err)
	}
	defer rows.Close()

	m.SubOrders = nil
	for rows.Next() {
		so, err := scanSubOrder(rows)
		if err != nil {
			return err
		}
		m.SubOrders = append(m.SubOrders, so)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, so := range m.SubOrders {
		if so.Items, err = loadLineItems(ctx, q, so.ID); err != nil {
			return err
		}
		if so.History, err = loadHistory(ctx, q, so.ID); err != nil {
			return err
		}
	}

	m.Payments, err = loadPayments(ctx, q, m.ID)
	return err
}

func loadLineItems(ctx context.Context, q querier, subOrderID uuid.UUID) ([]*domain.OrderLineItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, sub_order_id, position, variant_id, product_name, sku, options, image_ref,
		        unit_price, quantity, line_total
		 FROM order_line_items WHERE sub_order_id = $1 ORDER BY position`, subOrderID)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	var items []*domain.OrderLineItem
	for rows.Next() {
		var it domain.OrderLineItem
		if err := rows.Scan(
			&it.ID,
			&it.SubOrderID,
			&it.Position,
			&it.VariantID,
			&it.ProductName,
			&it.SKU,
			&it.Options,
			&it.ImageRef,
			&it.UnitPrice,
			&it.Quantity,
			&it.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func loadHistory(ctx context.Context, q querier, subOrderID uuid.UUID) ([]*domain.StatusHistory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, sub_order_id, from_status, to_status, changed_by, actor_role, notes, created_at
		 FROM order_status_history WHERE sub_order_id = $1 ORDER BY id`, subOrderID)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var history []*domain.StatusHistory
	for rows.Next() {
		var h domain.StatusHistory
		if err := rows.Scan(&h.ID, &h.SubOrderID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.ActorRole, &h.Notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		history = append(history, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return history, nil
}

func loadPayments(ctx context.Context, q querier, masterOrderID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, master_order_id, amount, currency, method_code, status, transaction_id, created_at, updated_at
		 FROM payments WHERE master_order_id = $1 ORDER BY created_at`, masterOrderID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.MasterOrderID, &p.Amount, &p.Currency, &p.MethodCode, &p.Status, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return payments, nil
}

func appendHistory(ctx context.Context, q querier, h *domain.StatusHistory) error {
	err := q.QueryRowContext(ctx,
		`INSERT INTO order_status_history (sub_order_id, from_status, to_status, changed_by, actor_role, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		 RETURNING id, created_at`,
		h.SubOrderID, h.FromStatus, h.ToStatus, h.ChangedBy, h.ActorRole, h.Notes, nullTime(h),
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func nullTime(h *domain.StatusHistory) sql.NullTime {
	return sql.NullTime{Time: h.CreatedAt, Valid: !h.CreatedAt.IsZero()}
}
