package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopos/internal/api/cart"
	"gopos/internal/api/product"
	"gopos/internal/api/promotion"
	"gopos/internal/api/purchaseorder"
	"gopos/internal/api/router"
	"gopos/internal/api/user"
	"gopos/internal/domain"
	"gopos/internal/pkg/cache"
	"gopos/internal/pkg/logger"
	"gopos/internal/pkg/token"
	"gopos/internal/repository/memrepo"
	"gopos/internal/service/cartservice"
	"gopos/internal/service/productservice"
	"gopos/internal/service/promotionservice"
	"gopos/internal/service/receivingservice"
	"gopos/internal/service/userservice"
)

func newAPI(t *testing.T, maxRequests int) http.Handler {
	t.Helper()
	log := logger.NewNop()
	store := memrepo.New(log)
	tokens := token.NewService("segredo", time.Hour)
	policy := domain.StatusPolicy{LowStockThreshold: 5, NearExpiryDays: 7}

	h := router.Handlers{
		Cart:          cart.NewHandler(cartservice.NewService(store.Carts(), store.Products(), store.Promotions(), log), log),
		Product:       product.NewHandler(productservice.NewService(store.Products(), policy, log), log),
		Promotion:     promotion.NewHandler(promotionservice.NewService(store.Promotions(), store.Products(), log), log),
		PurchaseOrder: purchaseorder.NewHandler(receivingservice.NewService(store.PurchaseOrders(), store.Products(), nil, log), log),
		User:          user.NewHandler(userservice.NewService(store.Users(), tokens, []string{"gerente@loja.com"}, log), log),
	}
	limit := router.RateLimit{Cache: cache.NewMemoryClient(), MaxRequests: maxRequests, Period: time.Minute}
	return router.NewRouter(h, tokens, limit, log)
}

func call(t *testing.T, api http.Handler, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, api http.Handler, email, role string) string {
	t.Helper()
	body := `{"email":"` + email + `","password":"123456","role":"` + role + `"}`
	rec := call(t, api, http.MethodPost, "/v1/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, api, http.MethodPost, "/v1/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["token"]
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPing(t *testing.T) {
	rec := call(t, newAPI(t, 0), http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestReceiveThenSell(t *testing.T) {
	api := newAPI(t, 0)
	admin := login(t, api, "gerente@loja.com", "admin")
	cashier := login(t, api, "caixa@loja.com", "")

	rec := call(t, api, http.MethodPost, "/v1/products", cashier, `{"name":"Café 500g","pack_size":10,"unit_price":"18.90","pack_price":"180.00"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, api, http.MethodPost, "/v1/products", admin, `{"name":"Café 500g","pack_size":10,"unit_price":"18.90","pack_price":"180.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	coffee := decode[domain.Product](t, rec)
	assert.Contains(t, coffee.StatusFlags, domain.FlagOutOfStock)

	rec = call(t, api, http.MethodPost, "/v1/cart/items", cashier, `{"product_id":"`+coffee.ID+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OUT_OF_STOCK", decode[domain.ErrorResponse](t, rec).Category)

	rec = call(t, api, http.MethodPost, "/v1/purchase-orders", admin, `{"lines":[{"product_id":"`+coffee.ID+`","quantity":2,"pack":true}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[domain.PurchaseOrder](t, rec)
	assert.Equal(t, domain.PurchaseOrderPending, order.Status)

	rec = call(t, api, http.MethodPost, "/v1/purchase-orders/"+order.ID+"/receive", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[domain.ReceivingReport](t, rec)
	require.Len(t, report.AddedProducts, 1)
	assert.Equal(t, 20, report.AddedProducts[0].NewQuantity)

	rec = call(t, api, http.MethodPost, "/v1/purchase-orders/"+order.ID+"/receive", admin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, api, http.MethodPost, "/v1/cart/items", cashier, `{"product_id":"`+coffee.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, api, http.MethodGet, "/v1/cart", cashier, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[domain.CartView](t, rec)
	require.Len(t, view.Lines, 1)
	assert.True(t, decimal.RequireFromString("18.90").Equal(view.Total), view.Total.String())
}

func TestCartRequiresToken(t *testing.T) {
	rec := call(t, newAPI(t, 0), http.MethodGet, "/v1/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	api := newAPI(t, 2)
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, call(t, api, http.MethodGet, "/ping", "", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, call(t, api, http.MethodGet, "/ping", "", "").Code)
}
