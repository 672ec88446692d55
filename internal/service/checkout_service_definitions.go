package service

import (
	"context"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	r "github.com/fjod/go_cart/marketplace/internal/repository"
)

type CheckoutService interface {
	Checkout(ctx context.Context, request *domain.CheckoutRequest) (*domain.CheckoutResult, error)
}

type CheckoutServiceImpl struct {
	repo      r.OrderRepository
	cart      *CartHandler
	catalog   *CatalogHandler
	ledger    StockLedger
	notify    *NotifyHandler
	assembler *Assembler
	metrics   *metrics.Metrics

	validationWorkers int
	now               func() time.Time
}

func NewCheckoutService(
	repo r.OrderRepository,
	cart *CartHandler,
	catalog *CatalogHandler,
	ledger StockLedger,
	notify *NotifyHandler,
	assembler *Assembler,
	m *metrics.Metrics,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		repo:              repo,
		cart:              cart,
		catalog:           catalog,
		ledger:            ledger,
		notify:            notify,
		assembler:         assembler,
		metrics:           m,
		validationWorkers: 8,
		now:               time.Now,
	}
}
