package inventory

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/marketplace/domain"
)

// MemoryStore implements StockStore with in-memory storage
type MemoryStore struct {
	mu     sync.RWMutex
	stocks map[int64]*domain.StockUnit // variantID -> stock unit
}

// NewMemoryStore creates a new in-memory stock store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stocks: make(map[int64]*domain.StockUnit),
	}
}

func (s *MemoryStore) Get(_ context.Context, variantID int64) (domain.StockUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock, exists := s.stocks[variantID]
	if !exists {
		return domain.StockUnit{}, domain.ErrStockNotFound
	}
	return *stock, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, variantID int64, expectedVersion int64, newQuantity int32) (domain.StockUnit, error) {
	if newQuantity < 0 {
		return domain.StockUnit{}, domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stock, exists := s.stocks[variantID]
	if !exists {
		return domain.StockUnit{}, domain.ErrStockNotFound
	}
	if stock.Version != expectedVersion {
		return domain.StockUnit{}, ErrVersionConflict
	}

	stock.Quantity = newQuantity
	stock.Version++
	return *stock, nil
}

// SetStock sets the stock level for a variant. Existing versions keep increasing.
func (s *MemoryStore) SetStock(_ context.Context, variantID int64, quantity int32) error {
	if quantity < 0 {
		return domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stock, exists := s.stocks[variantID]; exists {
		stock.Quantity = quantity
		stock.Version++
		return nil
	}
	s.stocks[variantID] = &domain.StockUnit{
		VariantID: variantID,
		Quantity:  quantity,
		Version:   1,
	}
	return nil
}
