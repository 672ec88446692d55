package domain

import "github.com/shopspring/decimal"

type CheckoutRequest struct {
	UserID            int64
	ShippingAddressID int64
	BillingAddressID  *int64
	PaymentMethodCode string
	Notes             string
	IdempotencyKey    string
}

type SubOrderSummary struct {
	OrderNumber string
	ShopID      int64
	Status      OrderStatus
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	ItemCount   int
}

type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	Currency    string
}

type CheckoutResult struct {
	OrderGroupNumber string
	Status           MasterOrderStatus
	SubOrders        []SubOrderSummary
	Totals           Totals
	Replayed         bool
}

// NewCheckoutResult summarises a persisted master order and its sub-orders.
func NewCheckoutResult(m *MasterOrder) *CheckoutResult {
	res := &CheckoutResult{
		OrderGroupNumber: m.OrderGroupNumber,
		Status:           m.Status,
		SubOrders:        make([]SubOrderSummary, 0, len(m.SubOrders)),
		Totals: Totals{
			Subtotal:    decimal.Zero,
			ShippingFee: decimal.Zero,
			Discount:    decimal.Zero,
			Tax:         decimal.Zero,
			Total:       m.TotalAmount,
			Currency:    m.Currency,
		},
	}
	for _, so := range m.SubOrders {
		res.SubOrders = append(res.SubOrders, SubOrderSummary{
			OrderNumber: so.OrderNumber,
			ShopID:      so.ShopID,
			Status:      so.Status,
			Subtotal:    so.Subtotal,
			ShippingFee: so.ShippingFee,
			Discount:    so.Discount,
			Tax:         so.Tax,
			Total:       so.Total,
			ItemCount:   len(so.Items),
		})
		res.Totals.Subtotal = res.Totals.Subtotal.Add(so.Subtotal)
		res.Totals.ShippingFee = res.Totals.ShippingFee.Add(so.ShippingFee)
		res.Totals.Discount = res.Totals.Discount.Add(so.Discount)
		res.Totals.Tax = res.Totals.Tax.Add(so.Tax)
	}
	return res
}

type UpdateStatusRequest struct {
	OrderNumber string
	NewStatus   OrderStatus
	Notes       string
	Actor       Actor
}

type CancelRequest struct {
	OrderNumber string
	Reason      string
	Actor       Actor
}
