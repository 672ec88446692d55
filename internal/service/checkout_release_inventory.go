package service

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
)

// releaseInventory returns reserved stock after a failed checkout. It keeps going past
// individual failures; a release that fails leaves stock short and is logged as such.
func (s *CheckoutServiceImpl) releaseInventory(ctx context.Context, reservations []domain.Reservation) error {
	// the request may already be cancelled, the release must still run
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for _, res := range reservations {
		if _, err := s.ledger.Release(ctx, res.VariantID, res.Quantity); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Int64("variant_id", res.VariantID).
				Int32("quantity", res.Quantity).
				Msg("CRITICAL: failed to release reserved stock after checkout failure")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
