package service

import (
	"context"

	"github.com/fjod/go_cart/marketplace/domain"
	r "github.com/fjod/go_cart/marketplace/internal/repository"
)

// OrderQueryService serves read access to placed orders.
type OrderQueryService struct {
	repo r.OrderRepository
}

func NewOrderQueryService(repo r.OrderRepository) *OrderQueryService {
	return &OrderQueryService{repo: repo}
}

// SubOrder is visible to its buyer, the shop fulfilling it and admins.
func (s *OrderQueryService) SubOrder(ctx context.Context, orderNumber string, actor domain.Actor) (*domain.SubOrder, error) {
	so, err := s.repo.GetSubOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, so) {
		return nil, domain.ErrOrderNotFound
	}
	return so, nil
}

// visibleTo reports whether actor may know that so exists. Callers answer
// ErrOrderNotFound otherwise, so existence is not revealed.
func visibleTo(actor domain.Actor, so *domain.SubOrder) bool {
	switch {
	case actor.Role == domain.RoleAdmin,
		actor.Role == domain.RoleBuyer && actor.UserID == so.UserID,
		actor.Role == domain.RoleSeller && actor.ShopID != 0 && actor.ShopID == so.ShopID:
		return true
	}
	return false
}

// OrderGroup is visible to its buyer and admins.
func (s *OrderQueryService) OrderGroup(ctx context.Context, orderGroupNumber string, actor domain.Actor) (*domain.MasterOrder, error) {
	m, err := s.repo.GetMasterOrderByNumber(ctx, orderGroupNumber)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleAdmin || (actor.Role == domain.RoleBuyer && actor.UserID == m.UserID) {
		return m, nil
	}
	return nil, domain.ErrOrderNotFound
}

func (s *OrderQueryService) ListOrders(ctx context.Context, actor domain.Actor, limit int) ([]*domain.MasterOrder, error) {
	if actor.Role != domain.RoleBuyer {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListMasterOrdersByUser(ctx, actor.UserID, limit)
}
