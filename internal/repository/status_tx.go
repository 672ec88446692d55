package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/inventory"
	"github.com/google/uuid"
)

type statusTx struct {
	tx *sql.Tx
}

func (r *Repository) BeginStatusTx(ctx context.Context) (StatusTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status tx: %w", err)
	}
	return &statusTx{tx: tx}, nil
}

// LockSubOrder takes the row lock that serializes transitions of one sub-order.
func (t *statusTx) LockSubOrder(ctx context.Context, orderNumber string) (*domain.SubOrder, error) {
	return scanSubOrder(t.tx.QueryRowContext(ctx, subOrderSelect+` WHERE order_number = $1 FOR UPDATE`, orderNumber))
}

func (t *statusTx) LineItems(ctx context.Context, subOrderID uuid.UUID) ([]*domain.OrderLineItem, error) {
	return loadLineItems(ctx, t.tx, subOrderID)
}

func (t *statusTx) UpdateSubOrderStatus(ctx context.Context, subOrderID uuid.UUID, status domain.OrderStatus) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE sub_orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, subOrderID)
	if err != nil {
		return fmt.Errorf("update sub order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (t *statusTx) AppendHistory(ctx context.Context, h *domain.StatusHistory) error {
	return appendHistory(ctx, t.tx, h)
}

// LockMasterOrder serializes aggregation across siblings so the last writer sees every committed status.
func (t *statusTx) LockMasterOrder(ctx context.Context, masterOrderID uuid.UUID) (*domain.MasterOrder, error) {
	return scanMasterOrder(t.tx.QueryRowContext(ctx, masterOrderSelect+` WHERE id = $1 FOR UPDATE`, masterOrderID))
}

func (t *statusTx) SiblingStatuses(ctx context.Context, masterOrderID uuid.UUID) ([]domain.OrderStatus, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT status FROM sub_orders WHERE master_order_id = $1`, masterOrderID)
	if err != nil {
		return nil, fmt.Errorf("query sibling statuses: %w", err)
	}
	defer rows.Close()

	var statuses []domain.OrderStatus
	for rows.Next() {
		var s domain.OrderStatus
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan sibling status: %w", err)
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return statuses, nil
}

func (t *statusTx) UpdateMasterStatus(ctx context.Context, masterOrderID uuid.UUID, status domain.MasterOrderStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE master_orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status <> $1`, status, masterOrderID)
	if err != nil {
		return fmt.Errorf("update master order status: %w", err)
	}
	return nil
}

func (t *statusTx) Stock() inventory.StockStore {
	return inventory.NewPostgresStore(t.tx)
}

func (t *statusTx) Commit() error {
	return t.tx.Commit()
}

func (t *statusTx) Rollback() error {
	return t.tx.Rollback()
}
