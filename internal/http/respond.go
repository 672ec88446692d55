package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fjod/go_cart/marketplace/domain"
	"github.com/fjod/go_cart/marketplace/pkg/logger"
	"github.com/rs/zerolog/log"
)

const maxRequestBodySize = 1 << 20 // 1MB

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// decodeJSON reads a bounded JSON body. An empty body is accepted when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
	return false
}

// handleServiceError converts domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		insufficient   *domain.InsufficientStockError
		exhausted      *domain.ConcurrencyExhaustedError
		unavailable    *domain.VariantUnavailableError
		invalid        *domain.InvalidTransitionError
		notCancellable *domain.NotCancellableError
	)

	var status int
	var code string
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		status, code = http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		status, code = http.StatusUnprocessableEntity, "invalid_payment_method"
	case errors.Is(err, domain.ErrAddressNotFound):
		status, code = http.StatusUnprocessableEntity, "address_not_found"
	case errors.As(err, &unavailable):
		status, code = http.StatusUnprocessableEntity, "variant_unavailable"
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, code = http.StatusBadRequest, "invalid_quantity"
	case errors.As(err, &insufficient):
		status, code = http.StatusConflict, "insufficient_stock"
	case errors.As(err, &exhausted):
		status, code = http.StatusConflict, "concurrency_exhausted"
	case errors.As(err, &invalid):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.As(err, &notCancellable):
		status, code = http.StatusConflict, "not_cancellable"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrOrderNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrCheckoutFailed):
		logger.Ctx(r.Context()).Error().Err(err).Msg("checkout failed")
		respondError(w, http.StatusInternalServerError, "checkout_failed", domain.ErrCheckoutFailed.Error())
		return
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled service error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		Retryable: domain.IsRetryable(err),
	})
}
