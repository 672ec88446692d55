package service

import (
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validated(v domain.VariantInfo, qty int32) domain.ValidatedLine {
	return domain.ValidatedLine{
		Line:    domain.CartLine{VariantID: v.VariantID, Quantity: qty, UnitPrice: v.Price},
		Variant: v,
	}
}

func testAssembler() *Assembler {
	return NewAssembler(FlatRateShipping{
		FreeThreshold: decimal.NewFromInt(500),
		FlatFee:       decimal.NewFromInt(30),
	}, "USD")
}

func assemblyInput(lines ...domain.ValidatedLine) AssemblyInput {
	return AssemblyInput{
		UserID:          buyerID,
		Lines:           lines,
		ShippingAddress: "Ada Buyer, 12 Harbour Road",
		PaymentMethod:   domain.PaymentMethod{Code: "COD", Name: "Cash on delivery", IsActive: true},
		IdempotencyKey:  "key-1",
		PlacedAt:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFlatRateShipping(t *testing.T) {
	rule := FlatRateShipping{FreeThreshold: decimal.NewFromInt(500), FlatFee: decimal.NewFromInt(30)}

	tests := []struct {
		name     string
		subtotal string
		want     string
	}{
		{"below threshold", "499.99", "30"},
		{"at threshold", "500", "0"},
		{"above threshold", "1200", "0"},
		{"zero subtotal", "0", "30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rule.Fee(1, decimal.RequireFromString(tt.subtotal))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestAssemble_GroupsLinesByShopInCartOrder(t *testing.T) {
	a := testAssembler()
	b1 := variant(201, shopB, "50")
	a1 := variant(101, shopA, "60")
	b2 := variant(202, shopB, "10")
	a2 := variant(102, shopA, "40")

	order, err := a.Assemble(assemblyInput(validated(b1, 1), validated(a1, 1), validated(b2, 3), validated(a2, 1)))
	require.NoError(t, err)
	require.Len(t, order.SubOrders, 2)

	// shop B comes first because its line was first in the cart
	assert.Equal(t, shopB, order.SubOrders[0].ShopID)
	assert.Equal(t, shopA, order.SubOrders[1].ShopID)

	var bVariants, aVariants []int64
	for _, it := range order.SubOrders[0].Items {
		bVariants = append(bVariants, it.VariantID)
	}
	for _, it := range order.SubOrders[1].Items {
		aVariants = append(aVariants, it.VariantID)
	}
	assert.Equal(t, []int64{201, 202}, bVariants)
	assert.Equal(t, []int64{101, 102}, aVariants)

	for _, so := range order.SubOrders {
		for i, it := range so.Items {
			assert.Equal(t, i, it.Position)
			assert.Equal(t, so.ID, it.SubOrderID)
		}
	}
}

func TestAssemble_TotalsAndShipping(t *testing.T) {
	a := testAssembler()
	order, err := a.Assemble(assemblyInput(
		validated(variant(101, shopA, "60"), 1),
		validated(variant(102, shopA, "40"), 1),
		validated(variant(201, shopB, "50"), 2),
		validated(variant(301, 3, "250"), 2),
	))
	require.NoError(t, err)
	require.Len(t, order.SubOrders, 3)

	want := []struct {
		subtotal, fee, total string
	}{
		{"100", "30", "130"},
		{"100", "30", "130"},
		{"500", "0", "500"},
	}
	for i, w := range want {
		so := order.SubOrders[i]
		assert.True(t, decimal.RequireFromString(w.subtotal).Equal(so.Subtotal), "sub-order %d subtotal %s", i, so.Subtotal)
		assert.True(t, decimal.RequireFromString(w.fee).Equal(so.ShippingFee), "sub-order %d fee %s", i, so.ShippingFee)
		assert.True(t, decimal.RequireFromString(w.total).Equal(so.Total), "sub-order %d total %s", i, so.Total)
		assert.True(t, so.Discount.IsZero())
		assert.True(t, so.Tax.IsZero())
	}
	assert.True(t, decimal.NewFromInt(760).Equal(order.TotalAmount), "master total %s", order.TotalAmount)
	assert.Equal(t, "USD", order.Currency)
}

func TestAssemble_LineItemSnapshot(t *testing.T) {
	a := testAssembler()
	v := variant(101, shopA, "19.99")
	order, err := a.Assemble(assemblyInput(validated(v, 3)))
	require.NoError(t, err)

	item := order.SubOrders[0].Items[0]
	assert.Equal(t, v.ProductName, item.ProductName)
	assert.Equal(t, v.SKU, item.SKU)
	assert.Equal(t, v.Options, item.Options)
	assert.Equal(t, v.ImageRef, item.ImageRef)
	assert.True(t, v.Price.Equal(item.UnitPrice))
	assert.Equal(t, int32(3), item.Quantity)
	assert.Equal(t, "59.97", item.LineTotal.StringFixed(2))
}

func TestAssemble_NumbersStatusesAndPayment(t *testing.T) {
	a := testAssembler()
	in := assemblyInput(validated(variant(101, shopA, "60"), 1), validated(variant(201, shopB, "50"), 1))
	order, err := a.Assemble(in)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderGroupNumber, "OG-"))
	assert.Equal(t, domain.MasterStatusAwaitingConfirmation, order.Status)
	assert.Equal(t, "key-1", order.IdempotencyKey)
	assert.Equal(t, "COD", order.PaymentMethodCode)
	assert.Equal(t, "Cash on delivery", order.PaymentMethodName)
	assert.Equal(t, in.PlacedAt, order.CreatedAt)

	seen := map[string]bool{}
	for _, so := range order.SubOrders {
		assert.True(t, strings.HasPrefix(so.OrderNumber, "OD-"))
		assert.False(t, seen[so.OrderNumber], "order numbers must be unique")
		seen[so.OrderNumber] = true
		assert.Equal(t, order.ID, so.MasterOrderID)
		assert.Equal(t, buyerID, so.UserID)
		assert.Equal(t, domain.OrderStatusAwaitingConfirmation, so.Status)

		require.Len(t, so.History, 1)
		h := so.History[0]
		assert.Equal(t, domain.OrderStatus(""), h.FromStatus)
		assert.Equal(t, domain.OrderStatusAwaitingConfirmation, h.ToStatus)
		assert.Equal(t, buyerID, h.ChangedBy)
		assert.Equal(t, domain.RoleBuyer, h.ActorRole)
	}

	require.Len(t, order.Payments, 1)
	p := order.Payments[0]
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.True(t, order.TotalAmount.Equal(p.Amount))
	assert.Equal(t, "COD-"+order.OrderGroupNumber, p.TransactionID)
	assert.Equal(t, order.ID, p.MasterOrderID)
}

func TestAssemble_Rejects(t *testing.T) {
	a := testAssembler()

	_, err := a.Assemble(assemblyInput())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	in := assemblyInput(validated(variant(101, shopA, "60"), 1))
	in.PlacedAt = time.Time{}
	_, err = a.Assemble(in)
	assert.Error(t, err)
}

func TestAssemble_InjectedNumbers(t *testing.T) {
	a := testAssembler()
	n := 0
	a.groupNumber = func() string { return "OG-FIXED" }
	a.orderNumber = func() string { n++; return "OD-" + strings.Repeat("X", n) }

	order, err := a.Assemble(assemblyInput(validated(variant(101, shopA, "60"), 1), validated(variant(201, shopB, "50"), 1)))
	require.NoError(t, err)
	assert.Equal(t, "OG-FIXED", order.OrderGroupNumber)
	assert.Equal(t, "OD-X", order.SubOrders[0].OrderNumber)
	assert.Equal(t, "OD-XX", order.SubOrders[1].OrderNumber)
	assert.Equal(t, "COD-OG-FIXED", order.Payments[0].TransactionID)
}
