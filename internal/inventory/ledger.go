package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
)

const DefaultMaxAttempts = 3

type LedgerConfig struct {
	MaxAttempts  int           // read-modify-write cycles per operation
	RetryBackoff time.Duration // upper bound of the jittered pause between attempts, 0 disables it
}

// Ledger owns every mutation of stock units. Reserve and Release are
// optimistic read-modify-write cycles bounded by MaxAttempts.
type Ledger struct {
	store   StockStore
	cfg     LedgerConfig
	metrics *metrics.Metrics
}

func NewLedger(store StockStore, cfg LedgerConfig, m *metrics.Metrics) *Ledger {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Ledger{store: store, cfg: cfg, metrics: m}
}

// Reserve decrements the stock of variantID by quantity and returns the new on-hand quantity.
// Insufficient stock is detected before any write and is never retried.
func (l *Ledger) Reserve(ctx context.Context, variantID int64, quantity int32) (int32, error) {
	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	return l.mutate(ctx, "reserve", variantID, func(current int32) (int32, error) {
		if current < quantity {
			return 0, &domain.InsufficientStockError{VariantID: variantID, Requested: quantity, Available: current}
		}
		return current - quantity, nil
	})
}

// Release returns quantity to the stock of variantID and returns the new on-hand quantity.
// It is not idempotent: every call adds quantity again.
func (l *Ledger) Release(ctx context.Context, variantID int64, quantity int32) (int32, error) {
	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	return l.mutate(ctx, "release", variantID, func(current int32) (int32, error) {
		if current > math.MaxInt32-quantity {
			return 0, fmt.Errorf("release of %d would overflow stock of variant %d", quantity, variantID)
		}
		return current + quantity, nil
	})
}

// Available returns the latest committed on-hand quantity.
func (l *Ledger) Available(ctx context.Context, variantID int64) (int32, error) {
	unit, err := l.store.Get(ctx, variantID)
	if err != nil {
		return 0, err
	}
	return unit.Quantity, nil
}

func (l *Ledger) mutate(ctx context.Context, op string, variantID int64, next func(current int32) (int32, error)) (int32, error) {
	for attempt := 1; attempt <= l.cfg.MaxAttempts; attempt++ {
		unit, err := l.store.Get(ctx, variantID)
		if err != nil {
			return 0, err
		}

		newQuantity, err := next(unit.Quantity)
		if err != nil {
			return 0, err
		}

		updated, err := l.store.CompareAndSwap(ctx, variantID, unit.Version, newQuantity)
		if err == nil {
			return updated.Quantity, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return 0, err
		}

		if l.metrics != nil {
			l.metrics.StockConflicts.WithLabelValues(op).Inc()
		}
		logger.Ctx(ctx).Debug().
			Str("op", op).
			Int64("variant_id", variantID).
			Int("attempt", attempt).
			Msg("stock version conflict")

		if attempt < l.cfg.MaxAttempts {
			if err := l.pause(ctx); err != nil {
				return 0, err
			}
		}
	}
	return 0, &domain.ConcurrencyExhaustedError{VariantID: variantID, Attempts: l.cfg.MaxAttempts}
}

func (l *Ledger) pause(ctx context.Context) error {
	if l.cfg.RetryBackoff <= 0 {
		return ctx.Err()
	}
	d := time.Duration(rand.Int64N(int64(l.cfg.RetryBackoff))) + time.Microsecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
