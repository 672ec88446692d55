package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/marketplace/internal/metrics"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Checkout       *CheckoutHandler
	Orders         *OrdersHandler
	Cart           *CartHandler
	Metrics        *metrics.Metrics
	Health         func(ctx context.Context) error
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				logger.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(MockAuthMiddleware)

		r.Post("/checkout", cfg.Checkout.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", cfg.Orders.ListOrders)
			r.Get("/{order_id}", cfg.Orders.GetOrder)
			r.Put("/{order_id}/status", cfg.Orders.UpdateStatus)
			r.Put("/{order_id}/cancel", cfg.Orders.Cancel)
		})
		r.Get("/order-groups/{order_group_number}", cfg.Orders.GetOrderGroup)

		if cfg.Cart != nil {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Post("/items", cfg.Cart.AddItem)
				r.Delete("/items/{variant_id}", cfg.Cart.RemoveItem)
			})
		}
	})

	return otelhttp.NewHandler(r, "marketplace",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
