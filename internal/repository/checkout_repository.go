package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/lib/pq"
)

// CreateCheckout persists a fully assembled master order with its sub-orders, line items,
// initial history rows and payment in one transaction.
func (r *Repository) CreateCheckout(ctx context.Context, order *domain.MasterOrder) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO master_orders (id, order_group_number, user_id, shipping_address, billing_address,
		                            payment_method_code, payment_method_name, status, total_amount, currency,
		                            notes, idempotency_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		order.ID,
		order.OrderGroupNumber,
		order.UserID,
		order.ShippingAddress,
		order.BillingAddress,
		order.PaymentMethodCode,
		order.PaymentMethodName,
		order.Status,
		order.TotalAmount,
		order.Currency,
		order.Notes,
		nullString(order.IdempotencyKey),
		order.CreatedAt,
	)
	if err != nil {
		return mapInsertError("insert master order", err)
	}

	for _, so := range order.SubOrders {
		if err = insertSubOrder(ctx, tx, so); err != nil {
			return err
		}
	}

	for _, p := range order.Payments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO payments (id, master_order_id, amount, currency, method_code, status, transaction_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			p.ID, p.MasterOrderID, p.Amount, p.Currency, p.MethodCode, p.Status, p.TransactionID, p.CreatedAt,
		)
		if err != nil {
			return mapInsertError("insert payment", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	return nil
}

func insertSubOrder(ctx context.Context, tx *sql.Tx, so *domain.SubOrder) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sub_orders (id, order_number, master_order_id, shop_id, user_id, status,
		                         subtotal, shipping_fee, discount, tax, total, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		so.ID, so.OrderNumber, so.MasterOrderID, so.ShopID, so.UserID, so.Status,
		so.Subtotal, so.ShippingFee, so.Discount, so.Tax, so.Total, so.CreatedAt,
	)
	if err != nil {
		return mapInsertError("insert sub order", err)
	}

	for _, item := range so.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_line_items (id, sub_order_id, position, variant_id, product_name, sku,
			                               options, image_ref, unit_price, quantity, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, item.SubOrderID, item.Position, item.VariantID, item.ProductName, item.SKU,
			item.Options, item.ImageRef, item.UnitPrice, item.Quantity, item.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}

	for _, h := range so.History {
		if err = appendHistory(ctx, tx, h); err != nil {
			return err
		}
	}
	return nil
}

func mapInsertError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == "uq_master_orders_idempotency" {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("%s: %w", op, ErrDuplicateOrderNumber)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.MasterOrder, error) {
	if key == "" {
		return nil, ErrIdempotencyKeyNotFound
	}
	m, err := scanMasterOrder(r.db.QueryRowContext(ctx,
		masterOrderSelect+` WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := loadMasterChildren(ctx, r.db, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repository) PaymentMethod(ctx context.Context, code string) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT code, name, is_active FROM payment_methods WHERE code = $1`, code,
	).Scan(&pm.Code, &pm.Name, &pm.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment method: %w", err)
	}
	return &pm, nil
}

// AddressSnapshot formats an address owned by userID as a single line of text.
func (r *Repository) AddressSnapshot(ctx context.Context, addressID, userID int64) (string, error) {
	var recipient, phone, line1, line2, city, region, postal, country string
	err := r.db.QueryRowContext(ctx,
		`SELECT recipient_name, phone, line1, line2, city, region, postal_code, country
		 FROM addresses WHERE id = $1 AND user_id = $2`, addressID, userID,
	).Scan(&recipient, &phone, &line1, &line2, &city, &region, &postal, &country)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrAddressNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query address: %w", err)
	}
	return formatAddress(recipient, phone, line1, line2, city, strings.TrimSpace(region+" "+postal), country), nil
}

func formatAddress(parts ...string) string {
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
