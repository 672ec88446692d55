package inventory

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/marketplace/domain"
)

// ErrVersionConflict is returned by CompareAndSwap when another writer got there first.
var ErrVersionConflict = errors.New("stock unit version changed since it was read")

// StockStore is the compare-and-swap boundary over (quantity, version) pairs.
// Implementations never apply retry logic; that lives in the Ledger.
type StockStore interface {
	// Get returns the current stock unit or domain.ErrStockNotFound
	Get(ctx context.Context, variantID int64) (domain.StockUnit, error)

	// CompareAndSwap writes newQuantity and bumps the version only if the stored
	// version still equals expectedVersion. Returns the updated unit or ErrVersionConflict.
	CompareAndSwap(ctx context.Context, variantID int64, expectedVersion int64, newQuantity int32) (domain.StockUnit, error)

	// SetStock creates or overwrites a stock unit (used for initialization)
	SetStock(ctx context.Context, variantID int64, quantity int32) error
}
