package service

import (
	"context"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
)

type CartReader interface {
	Snapshot(ctx context.Context, userID int64) ([]domain.CartLine, error)
	Clear(ctx context.Context, userID int64) error
}

type VariantCatalog interface {
	Lookup(ctx context.Context, variantID int64) (domain.VariantInfo, error)
}

type StockLedger interface {
	Reserve(ctx context.Context, variantID int64, quantity int32) (int32, error)
	Release(ctx context.Context, variantID int64, quantity int32) (int32, error)
	Available(ctx context.Context, variantID int64) (int32, error)
}

type Notifier interface {
	Notify(ctx context.Context, kind, key string, payload any) error
}

type CartHandler struct {
	reader  CartReader
	timeout time.Duration
}

func NewCartHandler(reader CartReader, timeout time.Duration) *CartHandler {
	return &CartHandler{
		reader:  reader,
		timeout: timeout,
	}
}

type CatalogHandler struct {
	catalog VariantCatalog
	timeout time.Duration
}

func NewCatalogHandler(catalog VariantCatalog, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type NotifyHandler struct {
	notifier Notifier
	timeout  time.Duration
}

func NewNotifyHandler(notifier Notifier, timeout time.Duration) *NotifyHandler {
	return &NotifyHandler{
		notifier: notifier,
		timeout:  timeout,
	}
}
