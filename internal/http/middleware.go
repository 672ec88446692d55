package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/internal/metrics"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const actorKey ctxKey = iota

// RequestIDMiddleware hands the chi request id to the logger and echoes it back.
// It must run after middleware.RequestID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = r.Header.Get(middleware.RequestIDHeader)
		}
		if requestID == "" {
			requestID = "req-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		}

		w.Header().Set(middleware.RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), requestID)))
	})
}

// MockAuthMiddleware trusts the X-User-ID, X-User-Role and X-Shop-ID headers.
// Replace with real token validation before exposing the service.
func MockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
			return
		}

		role := domain.ActorRole(r.Header.Get("X-User-Role"))
		if role == "" {
			role = domain.RoleBuyer
		}
		switch role {
		case domain.RoleBuyer, domain.RoleSeller, domain.RoleAdmin:
		default:
			respondError(w, http.StatusUnauthorized, "unauthorized", "unknown role "+string(role))
			return
		}

		var shopID int64
		if raw := r.Header.Get("X-Shop-ID"); raw != "" {
			shopID, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || shopID <= 0 {
				respondError(w, http.StatusBadRequest, "invalid_shop_id", "X-Shop-ID must be a positive integer")
				return
			}
		}

		ctx := withActor(r.Context(), domain.Actor{UserID: userID, Role: role, ShopID: shopID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MetricsMiddleware counts requests by route pattern and status.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
		})
	}
}

func withActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok && actor.UserID != 0
}
