package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/marketplace/domain"
	r "github.com/fjod/go_cart/marketplace/internal/repository"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
)

// Checkout places one master order for the buyer's whole cart, or nothing at all.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, request *domain.CheckoutRequest) (res *domain.CheckoutResult, err error) {
	defer func() {
		if s.metrics == nil {
			return
		}
		result := checkoutResult(err)
		if err == nil && res != nil && res.Replayed {
			result = "replayed"
		}
		s.metrics.Checkouts.WithLabelValues(result).Inc()
	}()

	log := logger.Ctx(ctx).With().Int64("user_id", request.UserID).Logger()

	if replay, err := s.findReplay(ctx, request); err != nil || replay != nil {
		return replay, err
	}

	lines, err := s.validateCart(ctx, request.UserID)
	if err != nil {
		return nil, err
	}

	method, err := s.paymentMethod(ctx, request.PaymentMethodCode)
	if err != nil {
		return nil, err
	}

	shipping, billing, err := s.addresses(ctx, request)
	if err != nil {
		return nil, err
	}

	reservations, err := s.reserveInventory(ctx, lines)
	if err != nil {
		log.Info().Err(err).Msg("checkout rejected while reserving stock")
		return nil, err
	}

	order, err := s.assembler.Assemble(AssemblyInput{
		UserID:          request.UserID,
		Lines:           lines,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		PaymentMethod:   *method,
		Notes:           request.Notes,
		IdempotencyKey:  request.IdempotencyKey,
		PlacedAt:        s.now(),
	})
	if err != nil {
		s.releaseInventory(ctx, reservations)
		log.Error().Err(err).Msg("order assembly failed, reservations released")
		return nil, fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}

	if err := s.repo.CreateCheckout(ctx, order); err != nil {
		s.releaseInventory(ctx, reservations)
		if errors.Is(err, r.ErrDuplicateIdempotencyKey) {
			// a concurrent request with the same key won the race
			log.Info().Str("idempotency_key", request.IdempotencyKey).Msg("duplicate checkout, returning the stored order")
			replay, replayErr := s.findReplay(ctx, request)
			if replayErr == nil && replay == nil {
				replayErr = fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
			}
			return replay, replayErr
		}
		log.Error().Err(err).Msg("order persistence failed, reservations released")
		return nil, fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}

	log.Info().
		Str("order_group_number", order.OrderGroupNumber).
		Int("sub_orders", len(order.SubOrders)).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("checkout committed")

	s.complete(ctx, order)
	return domain.NewCheckoutResult(order), nil
}

// findReplay returns the stored result of an earlier checkout with the same idempotency key.
func (s *CheckoutServiceImpl) findReplay(ctx context.Context, request *domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	if request.IdempotencyKey == "" {
		return nil, nil
	}
	existing, err := s.repo.FindByIdempotencyKey(ctx, request.UserID, request.IdempotencyKey)
	if errors.Is(err, r.ErrIdempotencyKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}

	logger.Ctx(ctx).Info().
		Str("idempotency_key", request.IdempotencyKey).
		Str("order_group_number", existing.OrderGroupNumber).
		Msg("duplicate request detected")

	res := domain.NewCheckoutResult(existing)
	res.Replayed = true
	return res, nil
}

func (s *CheckoutServiceImpl) paymentMethod(ctx context.Context, code string) (*domain.PaymentMethod, error) {
	if code == "" {
		return nil, domain.ErrInvalidPaymentMethod
	}
	method, err := s.repo.PaymentMethod(ctx, code)
	if errors.Is(err, r.ErrPaymentMethodNotFound) {
		return nil, domain.ErrInvalidPaymentMethod
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment method: %w", err)
	}
	if !method.IsActive {
		return nil, domain.ErrInvalidPaymentMethod
	}
	return method, nil
}

// addresses snapshots the shipping and optional billing address as text.
func (s *CheckoutServiceImpl) addresses(ctx context.Context, request *domain.CheckoutRequest) (string, string, error) {
	shipping, err := s.repo.AddressSnapshot(ctx, request.ShippingAddressID, request.UserID)
	if err != nil {
		return "", "", fmt.Errorf("shipping address %d: %w", request.ShippingAddressID, err)
	}
	if request.BillingAddressID == nil {
		return shipping, "", nil
	}
	billing, err := s.repo.AddressSnapshot(ctx, *request.BillingAddressID, request.UserID)
	if err != nil {
		return "", "", fmt.Errorf("billing address %d: %w", *request.BillingAddressID, err)
	}
	return shipping, billing, nil
}
