package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/inventory"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	r "github.com/fjod/go_cart/marketplace/internal/repository"
	"github.com/google/uuid"
)

// Compensator gives a cancelled sub-order's stock back through a ledger bound to the
// status transaction, so the release commits or rolls back with the status change.
// Compensate is not idempotent; it must run once per cancellation.
type Compensator struct {
	cfg     inventory.LedgerConfig
	metrics *metrics.Metrics
}

func NewCompensator(cfg inventory.LedgerConfig, m *metrics.Metrics) *Compensator {
	return &Compensator{cfg: cfg, metrics: m}
}

// Compensate releases the quantity of every line item of subOrderID inside tx.
// Variants are released in id order so concurrent cancellations lock stock rows in the same order.
func (c *Compensator) Compensate(ctx context.Context, tx r.StatusTx, subOrderID uuid.UUID) ([]domain.Reservation, error) {
	items, err := tx.LineItems(ctx, subOrderID)
	if err != nil {
		return nil, fmt.Errorf("load line items of %s: %w", subOrderID, err)
	}

	released := make([]domain.Reservation, 0, len(items))
	for _, item := range items {
		released = append(released, domain.Reservation{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	slices.SortStableFunc(released, func(a, b domain.Reservation) int {
		return cmp.Compare(a.VariantID, b.VariantID)
	})

	ledger := inventory.NewLedger(tx.Stock(), c.cfg, c.metrics)
	for _, res := range released {
		if _, err := ledger.Release(ctx, res.VariantID, res.Quantity); err != nil {
			return nil, fmt.Errorf("release variant %d: %w", res.VariantID, err)
		}
	}
	return released, nil
}
