package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/catalog"
	"golang.org/x/sync/errgroup"
)

// validateCart loads the cart and re-checks every line against the catalog and current stock.
// Any failing line fails the whole cart.
func (s *CheckoutServiceImpl) validateCart(ctx context.Context, userID int64) ([]domain.ValidatedLine, error) {
	cartCtx, cancel := context.WithTimeout(ctx, s.cart.timeout)
	defer cancel() // releases resources if Snapshot completes before timeout elapses
	lines, err := s.cart.reader.Snapshot(cartCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	validated := make([]domain.ValidatedLine, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.validationWorkers)
	for i, line := range lines {
		g.Go(func() error {
			v, err := s.validateLine(gctx, line)
			if err != nil {
				return err
			}
			validated[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return validated, nil
}

func (s *CheckoutServiceImpl) validateLine(ctx context.Context, line domain.CartLine) (domain.ValidatedLine, error) {
	if line.Quantity <= 0 {
		return domain.ValidatedLine{}, fmt.Errorf("variant %d: %w", line.VariantID, domain.ErrInvalidQuantity)
	}

	catalogCtx, cancel := context.WithTimeout(ctx, s.catalog.timeout)
	defer cancel()
	info, err := s.catalog.catalog.Lookup(catalogCtx, line.VariantID)
	if errors.Is(err, catalog.ErrVariantNotFound) {
		return domain.ValidatedLine{}, &domain.VariantUnavailableError{VariantID: line.VariantID}
	}
	if err != nil {
		return domain.ValidatedLine{}, fmt.Errorf("failed to look up variant %d: %w", line.VariantID, err)
	}
	if !info.Active {
		return domain.ValidatedLine{}, &domain.VariantUnavailableError{VariantID: line.VariantID}
	}

	available, err := s.ledger.Available(ctx, line.VariantID)
	if errors.Is(err, domain.ErrStockNotFound) {
		available, err = 0, nil
	}
	if err != nil {
		return domain.ValidatedLine{}, fmt.Errorf("failed to read stock of variant %d: %w", line.VariantID, err)
	}
	if available < line.Quantity {
		return domain.ValidatedLine{}, &domain.InsufficientStockError{
			VariantID: line.VariantID,
			Requested: line.Quantity,
			Available: available,
		}
	}

	return domain.ValidatedLine{Line: line, Variant: info}, nil
}
