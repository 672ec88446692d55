package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one buyer cart entry with the price captured when it was added.
type CartLine struct {
	VariantID int64           `json:"variant_id"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	AddedAt   time.Time       `json:"added_at"`
}

// Cart is the buyer's current cart. Lines keep insertion order.
type Cart struct {
	ID        string     `json:"id,omitempty"`
	UserID    int64      `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// VariantInfo is what the catalog knows about a sellable variant at validation time.
type VariantInfo struct {
	VariantID   int64
	ShopID      int64
	ProductName string
	SKU         string
	Options     string
	ImageRef    string
	Price       decimal.Decimal
	Active      bool
}

// ValidatedLine is a cart line joined with its catalog snapshot.
// Price is the catalog price at checkout time, which is what the line item records.
type ValidatedLine struct {
	Line    CartLine
	Variant VariantInfo
}

// Subtotal is price * quantity
func (v ValidatedLine) Subtotal() decimal.Decimal {
	return v.Variant.Price.Mul(decimal.NewFromInt32(v.Line.Quantity))
}
