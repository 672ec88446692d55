package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/catalog"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	"github.com/shopspring/decimal"
)

type checkoutMock struct {
	got *domain.CheckoutRequest
	res *domain.CheckoutResult
	err error
}

func (m *checkoutMock) Checkout(_ context.Context, req *domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	m.got = req
	return m.res, m.err
}

type statusMock struct {
	gotUpdate *domain.UpdateStatusRequest
	gotCancel *domain.CancelRequest
	so        *domain.SubOrder
	err       error
}

func (m *statusMock) UpdateStatus(_ context.Context, req domain.UpdateStatusRequest) (*domain.SubOrder, error) {
	m.gotUpdate = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.so, nil
}

func (m *statusMock) Cancel(_ context.Context, req domain.CancelRequest) error {
	m.gotCancel = &req
	return m.err
}

type ordersMock struct {
	so       *domain.SubOrder
	master   *domain.MasterOrder
	list     []*domain.MasterOrder
	gotLimit int
	err      error
}

func (m *ordersMock) SubOrder(context.Context, string, domain.Actor) (*domain.SubOrder, error) {
	return m.so, m.err
}

func (m *ordersMock) OrderGroup(context.Context, string, domain.Actor) (*domain.MasterOrder, error) {
	return m.master, m.err
}

func (m *ordersMock) ListOrders(_ context.Context, _ domain.Actor, limit int) ([]*domain.MasterOrder, error) {
	m.gotLimit = limit
	return m.list, m.err
}

type cartMock struct {
	lines     map[int64][]domain.CartLine
	removeErr error
}

func (m *cartMock) Snapshot(_ context.Context, userID int64) ([]domain.CartLine, error) {
	return m.lines[userID], nil
}

func (m *cartMock) AddLine(_ context.Context, userID int64, line domain.CartLine) error {
	m.lines[userID] = append(m.lines[userID], line)
	return nil
}

func (m *cartMock) RemoveLine(_ context.Context, userID int64, variantID int64) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	var kept []domain.CartLine
	for _, l := range m.lines[userID] {
		if l.VariantID != variantID {
			kept = append(kept, l)
		}
	}
	m.lines[userID] = kept
	return nil
}

type catalogMock map[int64]domain.VariantInfo

func (m catalogMock) Lookup(_ context.Context, variantID int64) (domain.VariantInfo, error) {
	v, ok := m[variantID]
	if !ok {
		return domain.VariantInfo{}, catalog.ErrVariantNotFound
	}
	return v, nil
}

type testServer struct {
	handler  http.Handler
	checkout *checkoutMock
	status   *statusMock
	orders   *ordersMock
	cart     *cartMock
	metrics  *metrics.Metrics
}

func newTestServer() *testServer {
	ts := &testServer{
		checkout: &checkoutMock{},
		status:   &statusMock{},
		orders:   &ordersMock{},
		cart:     &cartMock{lines: map[int64][]domain.CartLine{}},
		metrics:  metrics.New(),
	}
	variants := catalogMock{
		101: {VariantID: 101, ShopID: 1, Price: decimal.RequireFromString("19.90"), Active: true},
		104: {VariantID: 104, ShopID: 1, Price: decimal.NewFromInt(5), Active: false},
	}
	ts.handler = NewRouter(RouterConfig{
		Checkout: NewCheckoutHandler(ts.checkout, 5*time.Second),
		Orders:   NewOrdersHandler(ts.status, ts.orders, 5*time.Second),
		Cart:     NewCartHandler(ts.cart, variants, 5*time.Second),
		Metrics:  ts.metrics,
	})
	return ts
}

type caller struct {
	userID int64
	role   domain.ActorRole
	shopID int64
}

var (
	asBuyer  = caller{userID: 7, role: domain.RoleBuyer}
	asSeller = caller{userID: 50, role: domain.RoleSeller, shopID: 1}
	anon     = caller{}
)

func (ts *testServer) do(t *testing.T, method, path string, who caller, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if who.userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(who.userID, 10))
		req.Header.Set("X-User-Role", string(who.role))
	}
	if who.shopID != 0 {
		req.Header.Set("X-Shop-ID", strconv.FormatInt(who.shopID, 10))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func sampleSubOrder() *domain.SubOrder {
	placed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.SubOrder{
		OrderNumber: "OD-1",
		ShopID:      1,
		UserID:      7,
		Status:      domain.OrderStatusProcessing,
		Subtotal:    decimal.NewFromInt(100),
		ShippingFee: decimal.NewFromInt(30),
		Discount:    decimal.Zero,
		Tax:         decimal.Zero,
		Total:       decimal.NewFromInt(130),
		CreatedAt:   placed,
		UpdatedAt:   placed,
		Items: []*domain.OrderLineItem{{
			VariantID:   101,
			ProductName: "Mug",
			SKU:         "MUG-1",
			UnitPrice:   decimal.NewFromInt(50),
			Quantity:    2,
			LineTotal:   decimal.NewFromInt(100),
		}},
		History: []*domain.StatusHistory{
			{ToStatus: domain.OrderStatusAwaitingConfirmation, ChangedBy: 7, ActorRole: domain.RoleBuyer, CreatedAt: placed},
			{FromStatus: domain.OrderStatusAwaitingConfirmation, ToStatus: domain.OrderStatusProcessing, ChangedBy: 50, ActorRole: domain.RoleSeller, CreatedAt: placed},
		},
	}
}
