package service

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/marketplace/domain"
)

// reserveInventory reserves every line. On the first failure it releases what was
// already reserved and returns the failure, so stock is either fully or not at all taken.
func (s *CheckoutServiceImpl) reserveInventory(ctx context.Context, lines []domain.ValidatedLine) ([]domain.Reservation, error) {
	reservations := make([]domain.Reservation, 0, len(lines))
	for _, l := range lines {
		_, err := s.ledger.Reserve(ctx, l.Line.VariantID, l.Line.Quantity)
		if errors.Is(err, domain.ErrStockNotFound) {
			err = &domain.InsufficientStockError{VariantID: l.Line.VariantID, Requested: l.Line.Quantity}
		}
		if err != nil {
			s.releaseInventory(ctx, reservations)
			return nil, err
		}
		reservations = append(reservations, domain.Reservation{VariantID: l.Line.VariantID, Quantity: l.Line.Quantity})
	}
	return reservations, nil
}
