package service

import (
	"errors"

	"github.com/fjod/go_cart/marketplace/domain"
)

// checkoutResult is the label recorded for a finished checkout.
func checkoutResult(err error) string {
	var (
		insufficient *domain.InsufficientStockError
		exhausted    *domain.ConcurrencyExhaustedError
		unavailable  *domain.VariantUnavailableError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		return "invalid_payment_method"
	case errors.Is(err, domain.ErrAddressNotFound):
		return "address_not_found"
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.As(err, &exhausted):
		return "concurrency_exhausted"
	case errors.As(err, &unavailable):
		return "variant_unavailable"
	default:
		return "failed"
	}
}
