package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/fjod/go_cart/marketplace/internal/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItem_CapturesCatalogPrice(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", asBuyer, `{"variant_id": 101, "quantity": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body []CartLineDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, int64(101), body[0].VariantID)
	assert.Equal(t, int32(2), body[0].Quantity)
	assert.Equal(t, "19.90", body[0].UnitPrice)
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"zero variant", `{"variant_id": 0, "quantity": 1}`, http.StatusBadRequest, "invalid_variant_id"},
		{"zero quantity", `{"variant_id": 101, "quantity": 0}`, http.StatusBadRequest, "invalid_quantity"},
		{"too many", `{"variant_id": 101, "quantity": 100}`, http.StatusBadRequest, "invalid_quantity"},
		{"inactive variant", `{"variant_id": 104, "quantity": 1}`, http.StatusUnprocessableEntity, "variant_unavailable"},
		{"unknown variant", `{"variant_id": 999, "quantity": 1}`, http.StatusUnprocessableEntity, "variant_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", asBuyer, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Error)
			assert.Empty(t, ts.cart.lines[asBuyer.userID])
		})
	}
}

func TestRemoveItem(t *testing.T) {
	ts := newTestServer()
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/v1/cart/items", asBuyer, `{"variant_id": 101, "quantity": 1}`).Code)

	rec := ts.do(t, http.MethodDelete, "/api/v1/cart/items/101", asBuyer, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.cart.lines[asBuyer.userID])

	rec = ts.do(t, http.MethodDelete, "/api/v1/cart/items/abc", asBuyer, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.cart.removeErr = cart.ErrLineNotFound
	rec = ts.do(t, http.MethodDelete, "/api/v1/cart/items/55", asBuyer, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCart(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/api/v1/cart", asBuyer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
