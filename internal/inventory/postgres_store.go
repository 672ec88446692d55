package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/marketplace/domain"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore keeps stock units in the stock_units table.
// Over *sql.DB every call is its own short statement. Over *sql.Tx the writes commit
// or roll back with that transaction, and updated rows stay locked until then.
type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, variantID int64) (domain.StockUnit, error) {
	query := `SELECT variant_id, quantity, version FROM stock_units WHERE variant_id = $1`

	var unit domain.StockUnit
	err := s.db.QueryRowContext(ctx, query, variantID).Scan(&unit.VariantID, &unit.Quantity, &unit.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StockUnit{}, domain.ErrStockNotFound
	}
	if err != nil {
		return domain.StockUnit{}, fmt.Errorf("query stock unit %d: %w", variantID, err)
	}
	return unit, nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, variantID int64, expectedVersion int64, newQuantity int32) (domain.StockUnit, error) {
	if newQuantity < 0 {
		return domain.StockUnit{}, domain.ErrInvalidQuantity
	}

	query := `UPDATE stock_units
	          SET quantity = $1, version = version + 1, updated_at = NOW()
	          WHERE variant_id = $2 AND version = $3
	          RETURNING variant_id, quantity, version`

	var unit domain.StockUnit
	err := s.db.QueryRowContext(ctx, query, newQuantity, variantID, expectedVersion).
		Scan(&unit.VariantID, &unit.Quantity, &unit.Version)
	if errors.Is(err, sql.ErrNoRows) {
		// either the version moved or the row is gone
		if _, getErr := s.Get(ctx, variantID); errors.Is(getErr, domain.ErrStockNotFound) {
			return domain.StockUnit{}, domain.ErrStockNotFound
		}
		return domain.StockUnit{}, ErrVersionConflict
	}
	if err != nil {
		return domain.StockUnit{}, fmt.Errorf("update stock unit %d: %w", variantID, err)
	}
	return unit, nil
}

func (s *PostgresStore) SetStock(ctx context.Context, variantID int64, quantity int32) error {
	if quantity < 0 {
		return domain.ErrInvalidQuantity
	}

	query := `INSERT INTO stock_units (variant_id, quantity, version, updated_at)
	          VALUES ($1, $2, 1, NOW())
	          ON CONFLICT (variant_id) DO UPDATE
	          SET quantity = EXCLUDED.quantity, version = stock_units.version + 1, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, variantID, quantity); err != nil {
		return fmt.Errorf("set stock unit %d: %w", variantID, err)
	}
	return nil
}
