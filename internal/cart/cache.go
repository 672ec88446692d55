package cart

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/marketplace/domain"
)

// Cache holds read-through copies of carts. Every invalidation bumps a per-user
// generation, and a write-back only lands if the generation it was read under is still current.
type Cache interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	SetIfCurrent(ctx context.Context, userID int64, cart *domain.Cart, generation int64) error
	Invalidate(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
