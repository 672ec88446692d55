package cart

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/marketplace/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// Repository is the durable cart store. The checkout path only reads and clears carts.
type Repository interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddLine(ctx context.Context, userID int64, line domain.CartLine) error
	RemoveLine(ctx context.Context, userID int64, variantID int64) error
	DeleteCart(ctx context.Context, userID int64) error
}
