package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MasterOrder is one checkout event spanning every participating shop.
// Address fields are text snapshots taken at checkout and never re-queried.
type MasterOrder struct {
	ID                uuid.UUID
	OrderGroupNumber  string
	UserID            int64
	ShippingAddress   string
	BillingAddress    string
	PaymentMethodCode string
	PaymentMethodName string
	Status            MasterOrderStatus
	TotalAmount       decimal.Decimal
	Currency          string
	Notes             string
	IdempotencyKey    string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	SubOrders []*SubOrder
	Payments  []*Payment
}

// SubOrder is the fulfilment unit of one shop within a checkout.
type SubOrder struct {
	ID            uuid.UUID
	OrderNumber   string
	MasterOrderID uuid.UUID
	ShopID        int64
	UserID        int64
	Status        OrderStatus
	Subtotal      decimal.Decimal
	ShippingFee   decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items   []*OrderLineItem
	History []*StatusHistory
}

// OrderLineItem is an immutable copy of the purchased variant as it was at checkout.
type OrderLineItem struct {
	ID          uuid.UUID
	SubOrderID  uuid.UUID
	VariantID   int64
	ProductName string
	SKU         string
	Options     string
	ImageRef    string
	UnitPrice   decimal.Decimal
	Quantity    int32
	LineTotal   decimal.Decimal
	Position    int
}

// StatusHistory is one append-only audit row. FromStatus is empty for the initial row.
type StatusHistory struct {
	ID         int64
	SubOrderID uuid.UUID
	FromStatus OrderStatus
	ToStatus   OrderStatus
	ChangedBy  int64
	ActorRole  ActorRole
	Notes      string
	CreatedAt  time.Time
}

type Payment struct {
	ID            uuid.UUID
	MasterOrderID uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	MethodCode    string
	Status        PaymentStatus
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentMethod is a configured collection method, e.g. cash on delivery.
type PaymentMethod struct {
	Code     string
	Name     string
	IsActive bool
}
