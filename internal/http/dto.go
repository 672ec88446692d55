package http

import (
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/shopspring/decimal"
)

type SubOrderSummaryDTO struct {
	OrderNumber string `json:"order_number"`
	ShopID      int64  `json:"shop_id"`
	Status      string `json:"status"`
	Subtotal    string `json:"subtotal"`
	ShippingFee string `json:"shipping_fee"`
	Discount    string `json:"discount"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
	ItemCount   int    `json:"item_count"`
}

type TotalsDTO struct {
	Subtotal    string `json:"subtotal"`
	ShippingFee string `json:"shipping_fee"`
	Discount    string `json:"discount"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
}

type CheckoutResponseDTO struct {
	OrderGroupNumber string               `json:"order_group_number"`
	Status           string               `json:"status"`
	SubOrders        []SubOrderSummaryDTO `json:"sub_orders"`
	Totals           TotalsDTO            `json:"totals"`
	Replayed         bool                 `json:"replayed"`
}

type LineItemDTO struct {
	VariantID   int64  `json:"variant_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Options     string `json:"options,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int32  `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

type HistoryDTO struct {
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	ChangedBy  int64  `json:"changed_by"`
	ActorRole  string `json:"actor_role"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type SubOrderDTO struct {
	OrderNumber string        `json:"order_number"`
	ShopID      int64         `json:"shop_id"`
	UserID      int64         `json:"user_id"`
	Status      string        `json:"status"`
	Subtotal    string        `json:"subtotal"`
	ShippingFee string        `json:"shipping_fee"`
	Discount    string        `json:"discount"`
	Tax         string        `json:"tax"`
	Total       string        `json:"total"`
	Items       []LineItemDTO `json:"items"`
	History     []HistoryDTO  `json:"history"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

type PaymentDTO struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	MethodCode    string `json:"method_code"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

type MasterOrderDTO struct {
	OrderGroupNumber  string        `json:"order_group_number"`
	Status            string        `json:"status"`
	ShippingAddress   string        `json:"shipping_address"`
	BillingAddress    string        `json:"billing_address,omitempty"`
	PaymentMethodCode string        `json:"payment_method_code"`
	PaymentMethodName string        `json:"payment_method_name"`
	TotalAmount       string        `json:"total_amount"`
	Currency          string        `json:"currency"`
	Notes             string        `json:"notes,omitempty"`
	SubOrders         []SubOrderDTO `json:"sub_orders"`
	Payments          []PaymentDTO  `json:"payments"`
	CreatedAt         string        `json:"created_at"`
}

type CartLineDTO struct {
	VariantID int64  `json:"variant_id"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	AddedAt   string `json:"added_at,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func convertCheckoutResult(res *domain.CheckoutResult) CheckoutResponseDTO {
	dto := CheckoutResponseDTO{
		OrderGroupNumber: res.OrderGroupNumber,
		Status:           res.Status.String(),
		SubOrders:        make([]SubOrderSummaryDTO, 0, len(res.SubOrders)),
		Totals: TotalsDTO{
			Subtotal:    money(res.Totals.Subtotal),
			ShippingFee: money(res.Totals.ShippingFee),
			Discount:    money(res.Totals.Discount),
			Tax:         money(res.Totals.Tax),
			Total:       money(res.Totals.Total),
			Currency:    res.Totals.Currency,
		},
		Replayed: res.Replayed,
	}
	for _, so := range res.SubOrders {
		dto.SubOrders = append(dto.SubOrders, SubOrderSummaryDTO{
			OrderNumber: so.OrderNumber,
			ShopID:      so.ShopID,
			Status:      so.Status.String(),
			Subtotal:    money(so.Subtotal),
			ShippingFee: money(so.ShippingFee),
			Discount:    money(so.Discount),
			Tax:         money(so.Tax),
			Total:       money(so.Total),
			ItemCount:   so.ItemCount,
		})
	}
	return dto
}

func convertSubOrder(so *domain.SubOrder) SubOrderDTO {
	dto := SubOrderDTO{
		OrderNumber: so.OrderNumber,
		ShopID:      so.ShopID,
		UserID:      so.UserID,
		Status:      so.Status.String(),
		Subtotal:    money(so.Subtotal),
		ShippingFee: money(so.ShippingFee),
		Discount:    money(so.Discount),
		Tax:         money(so.Tax),
		Total:       money(so.Total),
		Items:       make([]LineItemDTO, 0, len(so.Items)),
		History:     make([]HistoryDTO, 0, len(so.History)),
		CreatedAt:   timestamp(so.CreatedAt),
		UpdatedAt:   timestamp(so.UpdatedAt),
	}
	for _, item := range so.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Options:     item.Options,
			ImageRef:    item.ImageRef,
			UnitPrice:   money(item.UnitPrice),
			Quantity:    item.Quantity,
			LineTotal:   money(item.LineTotal),
		})
	}
	for _, h := range so.History {
		dto.History = append(dto.History, HistoryDTO{
			FromStatus: h.FromStatus.String(),
			ToStatus:   h.ToStatus.String(),
			ChangedBy:  h.ChangedBy,
			ActorRole:  string(h.ActorRole),
			Notes:      h.Notes,
			CreatedAt:  timestamp(h.CreatedAt),
		})
	}
	return dto
}

func convertMasterOrder(m *domain.MasterOrder) MasterOrderDTO {
	dto := MasterOrderDTO{
		OrderGroupNumber:  m.OrderGroupNumber,
		Status:            m.Status.String(),
		ShippingAddress:   m.ShippingAddress,
		BillingAddress:    m.BillingAddress,
		PaymentMethodCode: m.PaymentMethodCode,
		PaymentMethodName: m.PaymentMethodName,
		TotalAmount:       money(m.TotalAmount),
		Currency:          m.Currency,
		Notes:             m.Notes,
		SubOrders:         make([]SubOrderDTO, 0, len(m.SubOrders)),
		Payments:          make([]PaymentDTO, 0, len(m.Payments)),
		CreatedAt:         timestamp(m.CreatedAt),
	}
	for _, so := range m.SubOrders {
		dto.SubOrders = append(dto.SubOrders, convertSubOrder(so))
	}
	for _, p := range m.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			Amount:        money(p.Amount),
			Currency:      p.Currency,
			MethodCode:    p.MethodCode,
			Status:        string(p.Status),
			TransactionID: p.TransactionID,
		})
	}
	return dto
}
