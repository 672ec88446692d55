package domain

// OrderStatus is the lifecycle state of a single shop's sub-order.
type OrderStatus string

const (
	OrderStatusPendingPayment       OrderStatus = "PENDING_PAYMENT"
	OrderStatusAwaitingConfirmation OrderStatus = "AWAITING_CONFIRMATION"
	OrderStatusProcessing           OrderStatus = "PROCESSING"
	OrderStatusShipped              OrderStatus = "SHIPPED"
	OrderStatusDelivered            OrderStatus = "DELIVERED"
	OrderStatusCompleted            OrderStatus = "COMPLETED"
	OrderStatusCancelledByUser      OrderStatus = "CANCELLED_BY_USER"
	OrderStatusCancelledBySeller    OrderStatus = "CANCELLED_BY_SELLER"
	OrderStatusCancelledByAdmin     OrderStatus = "CANCELLED_BY_ADMIN"
)

// AllOrderStatuses lists every known sub-order status.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusAwaitingConfirmation,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelledByUser,
	OrderStatusCancelledBySeller,
	OrderStatusCancelledByAdmin,
}

// orderTransitions is the fulfilment flow driven by sellers and admins.
// CANCELLED_BY_USER is deliberately absent: it is only reachable through buyerCancellable.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusAwaitingConfirmation: {OrderStatusProcessing, OrderStatusCancelledBySeller},
	OrderStatusProcessing:           {OrderStatusShipped, OrderStatusCancelledBySeller},
	OrderStatusShipped:              {OrderStatusDelivered},
	OrderStatusDelivered:            {OrderStatusCompleted},
}

// buyerCancellable holds the states a buyer may cancel from.
var buyerCancellable = map[OrderStatus]struct{}{
	OrderStatusPendingPayment:       {},
	OrderStatusAwaitingConfirmation: {},
}

func (s OrderStatus) IsValid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsCancelled() bool {
	return s == OrderStatusCancelledByUser || s == OrderStatusCancelledBySeller || s == OrderStatusCancelledByAdmin
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s.IsCancelled()
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the transition table allows from -> to.
// The buyer cancellation branch is part of the table.
func CanTransitionTo(from, to OrderStatus) bool {
	if to == OrderStatusCancelledByUser {
		return CanBuyerCancel(from)
	}
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanBuyerCancel reports whether a buyer may cancel an order in the given state.
func CanBuyerCancel(from OrderStatus) bool {
	_, ok := buyerCancellable[from]
	return ok
}

// AllowedTransitions returns the states reachable from s, buyer cancellation included.
func AllowedTransitions(s OrderStatus) []OrderStatus {
	out := append([]OrderStatus(nil), orderTransitions[s]...)
	if CanBuyerCancel(s) {
		out = append(out, OrderStatusCancelledByUser)
	}
	return out
}

// MasterOrderStatus is the buyer-facing aggregate of all sibling sub-order statuses.
type MasterOrderStatus string

const (
	MasterStatusPendingPayment       MasterOrderStatus = "PENDING_PAYMENT"
	MasterStatusAwaitingConfirmation MasterOrderStatus = "AWAITING_CONFIRMATION"
	MasterStatusProcessing           MasterOrderStatus = "PROCESSING"
	MasterStatusCompleted            MasterOrderStatus = "COMPLETED"
	MasterStatusCancelled            MasterOrderStatus = "CANCELLED"
	MasterStatusPartiallyCancelled   MasterOrderStatus = "PARTIALLY_CANCELLED"
)

func (s MasterOrderStatus) String() string {
	return string(s)
}

// AggregateMasterStatus derives the master order status from its children.
// Rules are evaluated top to bottom; "all cancelled" must precede "any cancelled".
// An empty input yields PROCESSING, which never happens for a persisted master order.
func AggregateMasterStatus(children []OrderStatus) MasterOrderStatus {
	if len(children) == 0 {
		return MasterStatusProcessing
	}

	var pending, awaiting, completed, cancelled int
	for _, s := range children {
		switch {
		case s == OrderStatusPendingPayment:
			pending++
		case s == OrderStatusAwaitingConfirmation:
			awaiting++
		case s == OrderStatusCompleted:
			completed++
		case s.IsCancelled():
			cancelled++
		}
	}

	n := len(children)
	switch {
	case pending == n:
		return MasterStatusPendingPayment
	case awaiting == n:
		return MasterStatusAwaitingConfirmation
	case completed == n:
		return MasterStatusCompleted
	case cancelled == n:
		return MasterStatusCancelled
	case cancelled > 0:
		return MasterStatusPartiallyCancelled
	default:
		return MasterStatusProcessing
	}
}

// PaymentStatus is tracked independently of OrderStatus.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// ActorRole identifies who requested a status transition.
type ActorRole string

const (
	RoleBuyer  ActorRole = "buyer"
	RoleSeller ActorRole = "seller"
	RoleAdmin  ActorRole = "admin"
)

type Actor struct {
	UserID int64
	Role   ActorRole
	ShopID int64 // only meaningful for sellers
}
