package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	"github.com/fjod/go_cart/marketplace/internal/publisher"
	r "github.com/fjod/go_cart/marketplace/internal/repository"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
)

type StatusService struct {
	repo        r.OrderRepository
	compensator *Compensator
	notify      *NotifyHandler
	metrics     *metrics.Metrics
}

func NewStatusService(repo r.OrderRepository, compensator *Compensator, notify *NotifyHandler, m *metrics.Metrics) *StatusService {
	return &StatusService{
		repo:        repo,
		compensator: compensator,
		notify:      notify,
		metrics:     m,
	}
}

// transition describes one requested status change and who may make it.
type transition struct {
	orderNumber string
	to          domain.OrderStatus
	notes       string
	actor       domain.Actor
	authorize   func(so *domain.SubOrder) error
	allowed     func(from domain.OrderStatus) error
}

// UpdateStatus moves a sub-order along the seller-side transition table.
func (s *StatusService) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.SubOrder, error) {
	to := req.NewStatus
	err := s.apply(ctx, transition{
		orderNumber: req.OrderNumber,
		to:          to,
		notes:       req.Notes,
		actor:       req.Actor,
		authorize: func(so *domain.SubOrder) error {
			if !visibleTo(req.Actor, so) {
				return domain.ErrOrderNotFound
			}
			if req.Actor.Role == domain.RoleBuyer {
				return domain.ErrForbidden
			}
			return nil
		},
		allowed: func(from domain.OrderStatus) error {
			// buyer cancellation has its own entry point
			if to == domain.OrderStatusCancelledByUser || !domain.CanTransitionTo(from, to) {
				return &domain.InvalidTransitionError{From: from, To: to}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetSubOrderByNumber(ctx, req.OrderNumber)
}

// Cancel is the buyer's cancellation of their own sub-order.
func (s *StatusService) Cancel(ctx context.Context, req domain.CancelRequest) error {
	return s.apply(ctx, transition{
		orderNumber: req.OrderNumber,
		to:          domain.OrderStatusCancelledByUser,
		notes:       req.Reason,
		actor:       req.Actor,
		authorize: func(so *domain.SubOrder) error {
			if !visibleTo(req.Actor, so) {
				return domain.ErrOrderNotFound
			}
			if req.Actor.Role != domain.RoleBuyer {
				return domain.ErrForbidden
			}
			return nil
		},
		allowed: func(from domain.OrderStatus) error {
			if !domain.CanBuyerCancel(from) {
				return &domain.NotCancellableError{Current: from}
			}
			return nil
		},
	})
}

// apply runs one transition as a single unit of work. The sub-order row lock serializes
// transitions of that sub-order; the master row lock serializes aggregation across siblings.
func (s *StatusService) apply(ctx context.Context, t transition) (err error) {
	tx, err := s.repo.BeginStatusTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	so, err := tx.LockSubOrder(ctx, t.orderNumber)
	if err != nil {
		return err
	}
	if err := t.authorize(so); err != nil {
		return err
	}
	from := so.Status
	if err := t.allowed(from); err != nil {
		return err
	}

	if err := tx.UpdateSubOrderStatus(ctx, so.ID, t.to); err != nil {
		return err
	}
	if err := tx.AppendHistory(ctx, &domain.StatusHistory{
		SubOrderID: so.ID,
		FromStatus: from,
		ToStatus:   t.to,
		ChangedBy:  t.actor.UserID,
		ActorRole:  t.actor.Role,
		Notes:      t.notes,
	}); err != nil {
		return err
	}

	if t.to.IsCancelled() {
		if _, err := s.compensator.Compensate(ctx, tx, so.ID); err != nil {
			return fmt.Errorf("cancellation of %s not applied: %w", t.orderNumber, err)
		}
	}

	master, err := s.aggregate(ctx, tx, so)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status change: %w", err)
	}
	committed = true

	logger.Ctx(ctx).Info().
		Str("order_number", t.orderNumber).
		Str("from", from.String()).
		Str("to", t.to.String()).
		Str("master_status", master.Status.String()).
		Int64("actor", t.actor.UserID).
		Msg("order status changed")
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(t.to.String()).Inc()
	}
	s.announce(ctx, so, from, t, master)
	return nil
}

// aggregate recomputes the master status from every sibling, including the one just changed.
func (s *StatusService) aggregate(ctx context.Context, tx r.StatusTx, so *domain.SubOrder) (*domain.MasterOrder, error) {
	master, err := tx.LockMasterOrder(ctx, so.MasterOrderID)
	if err != nil {
		return nil, fmt.Errorf("lock master order: %w", err)
	}
	siblings, err := tx.SiblingStatuses(ctx, so.MasterOrderID)
	if err != nil {
		return nil, err
	}
	master.Status = domain.AggregateMasterStatus(siblings)
	if err := tx.UpdateMasterStatus(ctx, so.MasterOrderID, master.Status); err != nil {
		return nil, err
	}
	return master, nil
}

func (s *StatusService) announce(ctx context.Context, so *domain.SubOrder, from domain.OrderStatus, t transition, master *domain.MasterOrder) {
	if s.notify == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notify.timeout)
	defer cancel()
	err := s.notify.notifier.Notify(notifyCtx, publisher.KindOrderStatus, so.OrderNumber, publisher.OrderStatusChangedEvent{
		OrderNumber:      so.OrderNumber,
		OrderGroupNumber: master.OrderGroupNumber,
		ShopID:           so.ShopID,
		From:             from.String(),
		To:               t.to.String(),
		MasterStatus:     master.Status.String(),
		ChangedBy:        t.actor.UserID,
		ChangedAt:        time.Now().UTC(),
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_number", so.OrderNumber).Msg("status notification failed")
	}
}
