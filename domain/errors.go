package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrInvalidPaymentMethod = errors.New("payment method is unknown or inactive")
	ErrAddressNotFound      = errors.New("address not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrStockNotFound        = errors.New("stock unit not found")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrForbidden            = errors.New("actor is not allowed to change this order")
	ErrCheckoutFailed       = errors.New("checkout failed, no order was placed")
)

// InsufficientStockError is terminal for the current request: the stock was not there.
type InsufficientStockError struct {
	VariantID int64
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d: requested %d, available %d", e.VariantID, e.Requested, e.Available)
}

// ConcurrencyExhaustedError means every optimistic attempt lost a race; the buyer may retry.
type ConcurrencyExhaustedError struct {
	VariantID int64
	Attempts  int
}

func (e *ConcurrencyExhaustedError) Error() string {
	return fmt.Sprintf("stock for variant %d is under contention, gave up after %d attempts", e.VariantID, e.Attempts)
}

type VariantUnavailableError struct {
	VariantID int64
}

func (e *VariantUnavailableError) Error() string {
	return fmt.Sprintf("variant %d is not available for sale", e.VariantID)
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal transition of order status from %s to %s", e.From, e.To)
}

type NotCancellableError struct {
	Current OrderStatus
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order in status %s can not be cancelled", e.Current)
}

// IsRetryable reports whether the buyer may simply try again later.
func IsRetryable(err error) bool {
	var insufficient *InsufficientStockError
	var exhausted *ConcurrencyExhaustedError
	return errors.As(err, &insufficient) || errors.As(err, &exhausted)
}
