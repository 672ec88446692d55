package cart

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// Reader serves cart snapshots read-through the cache.
type Reader struct {
	repo  Repository
	cache Cache
	sfg   singleflight.Group // concurrent misses for one user hit the repository once
}

func NewReader(repo Repository, cache Cache) *Reader {
	return &Reader{
		repo:  repo,
		cache: cache,
	}
}

// Snapshot returns the buyer's cart lines in insertion order.
// A missing cart is an empty snapshot, not an error.
func (r *Reader) Snapshot(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	c, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return lines, nil
}

// loadTimeout bounds a coalesced load, which runs detached from the caller that started it.
const loadTimeout = 3 * time.Second

func (r *Reader) load(ctx context.Context, userID int64) (*domain.Cart, error) {
	ch := r.sfg.DoChan(flightKey(userID), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return r.fetch(loadCtx, userID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Cart), nil
	}
}

func (r *Reader) fetch(ctx context.Context, userID int64) (*domain.Cart, error) {
	c, err := r.cache.Get(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("cart cache get failed")
	}

	// read the generation before the repository so a concurrent invalidation wins
	gen, genErr := r.cache.Generation(ctx, userID)

	c, err = r.repo.GetCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return &domain.Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		logger.Ctx(ctx).Warn().Err(genErr).Int64("user_id", userID).Msg("cart cache generation unavailable, skipping write-back")
		return c, nil
	}

	go func() {
		setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.cache.SetIfCurrent(setCtx, userID, c, gen); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("cart cache set failed")
		}
	}()
	return c, nil
}

func (r *Reader) AddLine(ctx context.Context, userID int64, line domain.CartLine) error {
	if err := r.repo.AddLine(ctx, userID, line); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

func (r *Reader) RemoveLine(ctx context.Context, userID int64, variantID int64) error {
	if err := r.repo.RemoveLine(ctx, userID, variantID); err != nil {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

// Clear empties the cart. Clearing an absent cart succeeds.
func (r *Reader) Clear(ctx context.Context, userID int64) error {
	if err := r.repo.DeleteCart(ctx, userID); err != nil && !errors.Is(err, ErrCartNotFound) {
		return err
	}
	r.invalidate(ctx, userID)
	return nil
}

// invalidate also forgets any in-flight load, so callers arriving after a write never join a stale read.
func (r *Reader) invalidate(ctx context.Context, userID int64) {
	r.sfg.Forget(flightKey(userID))

	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := r.cache.Invalidate(delCtx, userID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("cart cache invalidate failed")
	}
}

func flightKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
