package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/variant-cart/internal/cache"
	"github.com/fjod/go_cart/variant-cart/internal/catalog"
	"github.com/fjod/go_cart/variant-cart/internal/domain"
	"github.com/fjod/go_cart/variant-cart/internal/repository"
	"github.com/fjod/go_cart/variant-cart/internal/resolver"
	"github.com/fjod/go_cart/variant-cart/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router  http.Handler
	catalog *catalog.MemoryStore
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := catalog.NewMemoryStore()
	require.NoError(t, store.UpsertProduct(ctx, domain.Product{
		ID:        "tee",
		Name:      "T-shirt",
		Available: true,
		Variants: []domain.Variant{
			{ID: "tee-s", Type: "S", Price: decimal.RequireFromString("10.00"), Stock: 4, Available: true},
			{ID: "tee-m", Type: "M", Price: decimal.RequireFromString("12.50"), Stock: 10, Available: true},
		},
	}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := service.NewCartService(
		repository.NewMemoryRepository(),
		cache.NewRedisCache(client, cache.DefaultTTL),
		resolver.New(store, time.Second),
		zap.NewNop(),
		service.Options{},
	)

	router := NewRouter(
		NewCartHandler(svc, 5*time.Second, zap.NewNop()),
		NewAdminHandler(svc, 5*time.Second, zap.NewNop()),
		RouterConfig{},
		zap.NewNop(),
	)
	return &testEnv{router: router, catalog: store}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) domain.CartView {
	t.Helper()
	var view domain.CartView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	return view
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetCart_Empty(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	view := decodeView(t, rec)
	assert.Equal(t, "u1", view.OwnerID)
	assert.NotNil(t, view.ActiveItems)
	assert.NotNil(t, view.InactiveItems)
	assert.Equal(t, 0, view.TotalQuantity)
}

func TestGetCart_Unauthorized(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
}

func TestAddItem_Flow(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "u1",
		map[string]any{"product_id": "tee", "variant_id": "tee-m"})
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decodeView(t, rec)
	require.Len(t, view.ActiveItems, 1)
	assert.Equal(t, 1, view.ActiveItems[0].Quantity)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items", "u1",
		map[string]any{"product_id": "tee", "variant_id": "tee-m", "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	view = decodeView(t, rec)
	assert.Equal(t, 3, view.TotalQuantity)
	assert.True(t, view.TotalValue.Equal(decimal.RequireFromString("37.5")))

	rec = env.do(t, http.MethodPut, "/api/v1/cart/items/tee/tee-m", "u1", map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decodeView(t, rec).TotalQuantity)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/tee/tee-m", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeView(t, rec).ActiveItems)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart/items/tee/tee-m", "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "u1",
		map[string]any{"product_id": "tee", "variant_id": "tee-s", "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/items", "u1",
		map[string]any{"product_id": "tee", "variant_id": "tee-s", "quantity": 2})
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "insufficient_stock", resp.Code)
	assert.Equal(t, "insufficient stock: requested 5, only 4 available", resp.Error)
	assert.EqualValues(t, 5, resp.Details["requested"])
	assert.EqualValues(t, 4, resp.Details["available"])
	assert.Equal(t, "tee-s", resp.Details["variant_id"])
}

func TestAddItem_Errors(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.catalog.SetVariantAvailable("tee", "tee-s", false))

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"zero quantity", map[string]any{"product_id": "tee", "variant_id": "tee-m", "quantity": 0}, http.StatusBadRequest, "invalid_argument"},
		{"missing product", map[string]any{"variant_id": "tee-m"}, http.StatusBadRequest, "invalid_argument"},
		{"unavailable", map[string]any{"product_id": "tee", "variant_id": "tee-s"}, http.StatusConflict, "variant_unavailable"},
		{"unknown variant", map[string]any{"product_id": "tee", "variant_id": "tee-xl"}, http.StatusConflict, "variant_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "u1", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestAddItem_InvalidJSON(t *testing.T) {
	env := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString("{"))
	req.Header.Set(HeaderUserID, "u1")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
}

func TestUpdateQuantity_LineNotFound(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/tee/tee-m", "u1", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "line_not_found", decodeError(t, rec).Code)
}

func TestInactiveItemsAndCleanup(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "u1",
		map[string]any{"product_id": "tee", "variant_id": "tee-s", "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/v1/cart/items", "u1",
		map[string]any{"product_id": "tee", "variant_id": "tee-m"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, env.catalog.SetStock("tee", "tee-s", 0))

	rec = env.do(t, http.MethodGet, "/api/v1/cart", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.Len(t, view.InactiveItems, 1)
	assert.Equal(t, domain.ReasonOutOfStock, view.InactiveItems[0].Reason)
	assert.Equal(t, 1, view.TotalQuantity)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/cleanup", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cleaned CleanupResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cleaned))
	assert.Equal(t, 1, cleaned.Removed)

	rec = env.do(t, http.MethodDelete, "/api/v1/cart", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeView(t, rec).ActiveItems)
}

type failingService struct {
	CartService
	err error
}

func (f failingService) GetCartView(context.Context, string) (*domain.CartView, error) {
	return nil, f.err
}

func TestGetCart_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.UpstreamTimeout("load cart", context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream_timeout"},
		{domain.ConcurrentModification("u1", 3, nil), http.StatusConflict, "concurrent_modification"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			handler := NewCartHandler(failingService{err: tt.err}, time.Second, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), userIDKey, "u1"))
			rec := httptest.NewRecorder()

			handler.GetCart(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestStatusFor_DistinctCodes(t *testing.T) {
	seen := map[string]bool{}
	for k := domain.KindInvalidArgument; k <= domain.KindUpstreamTimeout; k++ {
		_, code := StatusFor(k)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
