package service

import (
	"errors"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// ShippingRule prices the delivery of one shop's part of an order.
type ShippingRule interface {
	Fee(shopID int64, subtotal decimal.Decimal) decimal.Decimal
}

// FlatRateShipping charges FlatFee unless the subtotal reaches FreeThreshold.
type FlatRateShipping struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

func (s FlatRateShipping) Fee(_ int64, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(s.FreeThreshold) {
		return decimal.Zero
	}
	return s.FlatFee
}

type AssemblyInput struct {
	UserID          int64
	Lines           []domain.ValidatedLine
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   domain.PaymentMethod
	Notes           string
	IdempotencyKey  string
	PlacedAt        time.Time
}

// Assembler turns validated cart lines into an unsaved master order graph.
type Assembler struct {
	shipping ShippingRule
	currency string

	groupNumber func() string
	orderNumber func() string
}

func NewAssembler(shipping ShippingRule, currency string) *Assembler {
	return &Assembler{
		shipping:    shipping,
		currency:    currency,
		groupNumber: func() string { return "OG-" + ulid.Make().String() },
		orderNumber: func() string { return "OD-" + ulid.Make().String() },
	}
}

func (a *Assembler) Assemble(in AssemblyInput) (*domain.MasterOrder, error) {
	if len(in.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if in.PlacedAt.IsZero() {
		return nil, errors.New("assembly requires a placement time")
	}
	placed := in.PlacedAt.UTC()

	master := &domain.MasterOrder{
		ID:                uuid.New(),
		OrderGroupNumber:  a.groupNumber(),
		UserID:            in.UserID,
		ShippingAddress:   in.ShippingAddress,
		BillingAddress:    in.BillingAddress,
		PaymentMethodCode: in.PaymentMethod.Code,
		PaymentMethodName: in.PaymentMethod.Name,
		Status:            domain.MasterStatusAwaitingConfirmation,
		TotalAmount:       decimal.Zero,
		Currency:          a.currency,
		Notes:             in.Notes,
		IdempotencyKey:    in.IdempotencyKey,
		CreatedAt:         placed,
		UpdatedAt:         placed,
	}

	for _, group := range groupByShop(in.Lines) {
		so := a.assembleSubOrder(master, group, placed)
		master.SubOrders = append(master.SubOrders, so)
		master.TotalAmount = master.TotalAmount.Add(so.Total)
	}

	master.Payments = []*domain.Payment{{
		ID:            uuid.New(),
		MasterOrderID: master.ID,
		Amount:        master.TotalAmount,
		Currency:      a.currency,
		MethodCode:    in.PaymentMethod.Code,
		Status:        domain.PaymentStatusPending,
		TransactionID: TransactionID(in.PaymentMethod.Code, master.OrderGroupNumber),
		CreatedAt:     placed,
		UpdatedAt:     placed,
	}}
	return master, nil
}

func (a *Assembler) assembleSubOrder(master *domain.MasterOrder, lines []domain.ValidatedLine, placed time.Time) *domain.SubOrder {
	so := &domain.SubOrder{
		ID:            uuid.New(),
		OrderNumber:   a.orderNumber(),
		MasterOrderID: master.ID,
		ShopID:        lines[0].Variant.ShopID,
		UserID:        master.UserID,
		Status:        domain.OrderStatusAwaitingConfirmation,
		Subtotal:      decimal.Zero,
		Discount:      decimal.Zero,
		Tax:           decimal.Zero,
		CreatedAt:     placed,
		UpdatedAt:     placed,
	}

	for i, l := range lines {
		lineTotal := l.Subtotal()
		so.Items = append(so.Items, &domain.OrderLineItem{
			ID:          uuid.New(),
			SubOrderID:  so.ID,
			VariantID:   l.Variant.VariantID,
			ProductName: l.Variant.ProductName,
			SKU:         l.Variant.SKU,
			Options:     l.Variant.Options,
			ImageRef:    l.Variant.ImageRef,
			UnitPrice:   l.Variant.Price,
			Quantity:    l.Line.Quantity,
			LineTotal:   lineTotal,
			Position:    i,
		})
		so.Subtotal = so.Subtotal.Add(lineTotal)
	}

	so.ShippingFee = a.shipping.Fee(so.ShopID, so.Subtotal)
	so.Total = so.Subtotal.Add(so.ShippingFee).Sub(so.Discount).Add(so.Tax)
	so.History = []*domain.StatusHistory{{
		SubOrderID: so.ID,
		ToStatus:   domain.OrderStatusAwaitingConfirmation,
		ChangedBy:  master.UserID,
		ActorRole:  domain.RoleBuyer,
		Notes:      "order placed",
		CreatedAt:  placed,
	}}
	return so
}

// groupByShop partitions lines by shop. Shops appear in order of their first line
// and lines keep cart order within a shop.
func groupByShop(lines []domain.ValidatedLine) [][]domain.ValidatedLine {
	index := make(map[int64]int)
	var groups [][]domain.ValidatedLine
	for _, l := range lines {
		i, ok := index[l.Variant.ShopID]
		if !ok {
			i = len(groups)
			index[l.Variant.ShopID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], l)
	}
	return groups
}

// TransactionID is derived from the order group so a replayed checkout finds the same payment.
func TransactionID(methodCode, orderGroupNumber string) string {
	return methodCode + "-" + orderGroupNumber
}
