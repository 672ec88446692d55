package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/catalog"
	"github.com/fjod/go_cart/marketplace/internal/inventory"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	r "github.com/fjod/go_cart/marketplace/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockAddress struct {
	userID int64
	text   string
}

// MockRepository implements r.OrderRepository in memory. Status transactions stage
// their writes and apply them on Commit.
type MockRepository struct {
	mu             sync.Mutex
	masters        map[string]*domain.MasterOrder
	subOrders      map[string]*domain.SubOrder
	PaymentMethods map[string]*domain.PaymentMethod
	Addresses      map[int64]mockAddress

	CreateErr    error
	RaceOrder    *domain.MasterOrder // stored instead of the new order, as if a concurrent request won
	FindErr      error
	CommitErr    error
	LineItemsErr error
	CreateCalls  int

	Stock        inventory.StockStore  // committed stock behind every status tx
	StockErr     map[int64]error       // injected CompareAndSwap failures inside status txs
	OnStockWrite func(variantID int64) // runs after a status tx staged a stock write
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		masters:   make(map[string]*domain.MasterOrder),
		subOrders: make(map[string]*domain.SubOrder),
		PaymentMethods: map[string]*domain.PaymentMethod{
			"COD":       {Code: "COD", Name: "Cash on delivery", IsActive: true},
			"GIFT_CARD": {Code: "GIFT_CARD", Name: "Gift card", IsActive: false},
		},
		Addresses: map[int64]mockAddress{
			1: {userID: buyerID, text: "Ada Buyer, 12 Harbour Road, Portsmouth"},
			2: {userID: buyerID, text: "Ada Buyer, 400 Office Park, Boston"},
			3: {userID: 999, text: "Someone Else, 1 Elsewhere"},
		},
	}
}

func (m *MockRepository) store(order *domain.MasterOrder) {
	m.masters[order.OrderGroupNumber] = order
	for _, so := range order.SubOrders {
		m.subOrders[so.OrderNumber] = so
	}
}

func (m *MockRepository) CreateCheckout(_ context.Context, order *domain.MasterOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.RaceOrder != nil {
		m.store(m.RaceOrder)
		return r.ErrDuplicateIdempotencyKey
	}
	m.store(order)
	return nil
}

func (m *MockRepository) FindByIdempotencyKey(_ context.Context, userID int64, key string) (*domain.MasterOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, o := range m.masters {
		if o.UserID == userID && o.IdempotencyKey == key && key != "" {
			return o, nil
		}
	}
	return nil, r.ErrIdempotencyKeyNotFound
}

func (m *MockRepository) GetMasterOrderByNumber(_ context.Context, number string) (*domain.MasterOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.masters[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockRepository) ListMasterOrdersByUser(_ context.Context, userID int64, _ int) ([]*domain.MasterOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.MasterOrder
	for _, o := range m.masters {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockRepository) GetSubOrderByNumber(_ context.Context, number string) (*domain.SubOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.subOrders[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *so
	cp.History = append([]*domain.StatusHistory(nil), so.History...)
	return &cp, nil
}

func (m *MockRepository) PaymentMethod(_ context.Context, code string) (*domain.PaymentMethod, error) {
	pm, ok := m.PaymentMethods[code]
	if !ok {
		return nil, r.ErrPaymentMethodNotFound
	}
	return pm, nil
}

func (m *MockRepository) AddressSnapshot(_ context.Context, addressID, userID int64) (string, error) {
	a, ok := m.Addresses[addressID]
	if !ok || a.userID != userID {
		return "", domain.ErrAddressNotFound
	}
	return a.text, nil
}

func (m *MockRepository) BeginStatusTx(context.Context) (r.StatusTx, error) {
	return &mockStatusTx{
		repo:         m,
		subStatus:    make(map[uuid.UUID]domain.OrderStatus),
		masterStatus: make(map[uuid.UUID]domain.MasterOrderStatus),
		stock: &txStockStore{
			base:    m.Stock,
			fail:    m.StockErr,
			onWrite: m.OnStockWrite,
			staged:  make(map[int64]*stagedUnit),
		},
	}, nil
}

func (m *MockRepository) subOrderByID(id uuid.UUID) *domain.SubOrder {
	for _, so := range m.subOrders {
		if so.ID == id {
			return so
		}
	}
	return nil
}

func (m *MockRepository) masterByID(id uuid.UUID) *domain.MasterOrder {
	for _, o := range m.masters {
		if o.ID == id {
			return o
		}
	}
	return nil
}

type mockStatusTx struct {
	repo         *MockRepository
	subStatus    map[uuid.UUID]domain.OrderStatus
	masterStatus map[uuid.UUID]domain.MasterOrderStatus
	history      []*domain.StatusHistory
	stock        *txStockStore
	done         bool
}

func (t *mockStatusTx) LockSubOrder(_ context.Context, number string) (*domain.SubOrder, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	so, ok := t.repo.subOrders[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *so
	if s, ok := t.subStatus[so.ID]; ok {
		cp.Status = s
	}
	return &cp, nil
}

func (t *mockStatusTx) LineItems(_ context.Context, id uuid.UUID) ([]*domain.OrderLineItem, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.repo.LineItemsErr != nil {
		return nil, t.repo.LineItemsErr
	}
	so := t.repo.subOrderByID(id)
	if so == nil {
		return nil, domain.ErrOrderNotFound
	}
	return so.Items, nil
}

func (t *mockStatusTx) UpdateSubOrderStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	t.subStatus[id] = status
	return nil
}

func (t *mockStatusTx) AppendHistory(_ context.Context, h *domain.StatusHistory) error {
	t.history = append(t.history, h)
	return nil
}

func (t *mockStatusTx) LockMasterOrder(_ context.Context, id uuid.UUID) (*domain.MasterOrder, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	o := t.repo.masterByID(id)
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *mockStatusTx) SiblingStatuses(_ context.Context, id uuid.UUID) ([]domain.OrderStatus, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	o := t.repo.masterByID(id)
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	var out []domain.OrderStatus
	for _, so := range o.SubOrders {
		s := so.Status
		if staged, ok := t.subStatus[so.ID]; ok {
			s = staged
		}
		out = append(out, s)
	}
	return out, nil
}

func (t *mockStatusTx) UpdateMasterStatus(_ context.Context, id uuid.UUID, status domain.MasterOrderStatus) error {
	t.masterStatus[id] = status
	return nil
}

func (t *mockStatusTx) Commit() error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.done {
		return errors.New("tx already done")
	}
	t.done = true
	if t.repo.CommitErr != nil {
		return t.repo.CommitErr
	}
	if err := t.stock.apply(); err != nil {
		return err
	}
	for id, s := range t.subStatus {
		t.repo.subOrderByID(id).Status = s
	}
	for _, h := range t.history {
		so := t.repo.subOrderByID(h.SubOrderID)
		so.History = append(so.History, h)
	}
	for id, s := range t.masterStatus {
		t.repo.masterByID(id).Status = s
	}
	return nil
}

func (t *mockStatusTx) Stock() inventory.StockStore {
	return t.stock
}

func (t *mockStatusTx) Rollback() error {
	t.done = true
	return nil
}

type stagedUnit struct {
	unit        domain.StockUnit
	baseVersion int64
}

// txStockStore stages stock writes of one status tx; nothing reaches base before Commit.
type txStockStore struct {
	base    inventory.StockStore
	fail    map[int64]error
	onWrite func(variantID int64)
	staged  map[int64]*stagedUnit
}

func (s *txStockStore) Get(ctx context.Context, variantID int64) (domain.StockUnit, error) {
	if st, ok := s.staged[variantID]; ok {
		return st.unit, nil
	}
	return s.base.Get(ctx, variantID)
}

func (s *txStockStore) CompareAndSwap(ctx context.Context, variantID int64, expectedVersion int64, newQuantity int32) (domain.StockUnit, error) {
	if err, ok := s.fail[variantID]; ok {
		return domain.StockUnit{}, err
	}
	cur, err := s.Get(ctx, variantID)
	if err != nil {
		return domain.StockUnit{}, err
	}
	if cur.Version != expectedVersion {
		return domain.StockUnit{}, inventory.ErrVersionConflict
	}
	st, ok := s.staged[variantID]
	if !ok {
		st = &stagedUnit{baseVersion: cur.Version}
		s.staged[variantID] = st
	}
	st.unit = domain.StockUnit{VariantID: variantID, Quantity: newQuantity, Version: cur.Version + 1}
	if s.onWrite != nil {
		s.onWrite(variantID)
	}
	return st.unit, nil
}

func (s *txStockStore) SetStock(context.Context, int64, int32) error {
	return errors.New("stock initialization inside a status tx")
}

// apply stands in for the row locks a real tx holds: base must not have moved since the first read.
func (s *txStockStore) apply() error {
	for id, st := range s.staged {
		unit, err := s.base.Get(context.Background(), id)
		if err != nil {
			return err
		}
		if unit.Version != st.baseVersion {
			return fmt.Errorf("stock of %d moved during the tx: %w", id, inventory.ErrVersionConflict)
		}
	}
	for id, st := range s.staged {
		if _, err := s.base.CompareAndSwap(context.Background(), id, st.baseVersion, st.unit.Quantity); err != nil {
			return fmt.Errorf("apply staged stock of %d: %w", id, err)
		}
	}
	return nil
}

type mockCart struct {
	mu         sync.Mutex
	lines      map[int64][]domain.CartLine
	err        error
	clearErr   error
	clearCalls int
}

func (c *mockCart) Snapshot(_ context.Context, userID int64) ([]domain.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.lines[userID], nil
}

func (c *mockCart) Clear(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearCalls++
	if c.clearErr != nil {
		return c.clearErr
	}
	delete(c.lines, userID)
	return nil
}

type mockCatalog struct {
	variants map[int64]domain.VariantInfo
	err      error
}

func (c *mockCatalog) Lookup(_ context.Context, variantID int64) (domain.VariantInfo, error) {
	if c.err != nil {
		return domain.VariantInfo{}, c.err
	}
	v, ok := c.variants[variantID]
	if !ok {
		return domain.VariantInfo{}, catalog.ErrVariantNotFound
	}
	return v, nil
}

type sentEvent struct {
	kind    string
	key     string
	payload any
}

type mockNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *mockNotifier) Notify(_ context.Context, kind, key string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, sentEvent{kind: kind, key: key, payload: payload})
	return nil
}

func (n *mockNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.kind)
	}
	return out
}

// faultyLedger injects failures for chosen variants in front of a real ledger.
type faultyLedger struct {
	StockLedger
	failReserve map[int64]error
	failRelease map[int64]error
}

func (f *faultyLedger) Reserve(ctx context.Context, variantID int64, quantity int32) (int32, error) {
	if err, ok := f.failReserve[variantID]; ok {
		return 0, err
	}
	return f.StockLedger.Reserve(ctx, variantID, quantity)
}

func (f *faultyLedger) Release(ctx context.Context, variantID int64, quantity int32) (int32, error) {
	if err, ok := f.failRelease[variantID]; ok {
		return 0, err
	}
	return f.StockLedger.Release(ctx, variantID, quantity)
}

const (
	buyerID = int64(7)
	shopA   = int64(1)
	shopB   = int64(2)
)

func variant(id, shopID int64, price string) domain.VariantInfo {
	return domain.VariantInfo{
		VariantID:   id,
		ShopID:      shopID,
		ProductName: "Product " + price,
		SKU:         "SKU-" + price,
		Options:     "size=M",
		ImageRef:    "img/p.jpg",
		Price:       decimal.RequireFromString(price),
		Active:      true,
	}
}

type fixture struct {
	repo     *MockRepository
	cart     *mockCart
	catalog  *mockCatalog
	store    *inventory.MemoryStore
	ledger   *faultyLedger
	notifier *mockNotifier
	metrics  *metrics.Metrics
	checkout *CheckoutServiceImpl
	status   *StatusService
}

// newFixture wires both services over in-memory collaborators and a real ledger.
func newFixture(t *testing.T, stock map[int64]int32) *fixture {
	t.Helper()
	store := inventory.NewMemoryStore()
	for id, q := range stock {
		require.NoError(t, store.SetStock(context.Background(), id, q))
	}
	ledger := &faultyLedger{
		StockLedger: inventory.NewLedger(store, inventory.LedgerConfig{MaxAttempts: 3}, nil),
		failReserve: map[int64]error{},
		failRelease: map[int64]error{},
	}

	repo := newMockRepository()
	repo.Stock = store
	repo.StockErr = map[int64]error{}

	f := &fixture{
		repo:  repo,
		cart:  &mockCart{lines: map[int64][]domain.CartLine{}},
		store: store,
		catalog: &mockCatalog{variants: map[int64]domain.VariantInfo{
			101: variant(101, shopA, "60"),
			102: variant(102, shopA, "40"),
			103: variant(103, shopA, "100"),
			201: variant(201, shopB, "50"),
			202: variant(202, shopB, "600"),
		}},
		ledger:   ledger,
		notifier: &mockNotifier{},
		metrics:  metrics.New(),
	}

	assembler := NewAssembler(FlatRateShipping{
		FreeThreshold: decimal.NewFromInt(500),
		FlatFee:       decimal.NewFromInt(30),
	}, "USD")
	notify := NewNotifyHandler(f.notifier, time.Second)

	f.checkout = NewCheckoutService(
		f.repo,
		NewCartHandler(f.cart, time.Second),
		NewCatalogHandler(f.catalog, time.Second),
		ledger,
		notify,
		assembler,
		f.metrics,
	)
	f.status = NewStatusService(f.repo, NewCompensator(inventory.LedgerConfig{MaxAttempts: 3}, nil), notify, f.metrics)
	return f
}

func (f *fixture) addToCart(variantID int64, qty int32) {
	f.cart.lines[buyerID] = append(f.cart.lines[buyerID], domain.CartLine{
		VariantID: variantID,
		Quantity:  qty,
		UnitPrice: f.catalog.variants[variantID].Price,
	})
}

func (f *fixture) stockOf(t *testing.T, variantID int64) int32 {
	t.Helper()
	unit, err := f.store.Get(context.Background(), variantID)
	require.NoError(t, err)
	return unit.Quantity
}

func checkoutRequest() *domain.CheckoutRequest {
	return &domain.CheckoutRequest{
		UserID:            buyerID,
		ShippingAddressID: 1,
		PaymentMethodCode: "COD",
	}
}
