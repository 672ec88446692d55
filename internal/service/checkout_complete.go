package service

import (
	"context"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/publisher"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
)

// complete runs the post-commit steps. None of them can undo the order; failures are only logged.
func (s *CheckoutServiceImpl) complete(ctx context.Context, order *domain.MasterOrder) {
	ctx = context.WithoutCancel(ctx)
	log := logger.Ctx(ctx).With().Str("order_group_number", order.OrderGroupNumber).Logger()

	cartCtx, cancel := context.WithTimeout(ctx, s.cart.timeout)
	if err := s.cart.reader.Clear(cartCtx, order.UserID); err != nil {
		log.Warn().Err(err).Msg("failed to clear cart after checkout")
	}
	cancel()

	if s.notify == nil {
		return
	}

	orderNumbers := make([]string, 0, len(order.SubOrders))
	for _, so := range order.SubOrders {
		orderNumbers = append(orderNumbers, so.OrderNumber)
	}
	s.publish(ctx, publisher.KindOrderConfirmed, order.OrderGroupNumber, publisher.OrderConfirmedEvent{
		OrderGroupNumber: order.OrderGroupNumber,
		UserID:           order.UserID,
		OrderNumbers:     orderNumbers,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		PlacedAt:         order.CreatedAt,
	})

	for _, so := range order.SubOrders {
		s.publish(ctx, publisher.KindShopNewOrder, so.OrderNumber, publisher.ShopNewOrderEvent{
			OrderNumber:      so.OrderNumber,
			OrderGroupNumber: order.OrderGroupNumber,
			ShopID:           so.ShopID,
			ItemCount:        len(so.Items),
			Total:            so.Total,
			Currency:         order.Currency,
			PlacedAt:         order.CreatedAt,
		})
	}
}

func (s *CheckoutServiceImpl) publish(ctx context.Context, kind, key string, payload any) {
	notifyCtx, cancel := context.WithTimeout(ctx, s.notify.timeout)
	defer cancel()
	if err := s.notify.notifier.Notify(notifyCtx, kind, key, payload); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("kind", kind).Str("key", key).Msg("notification failed")
	}
}
