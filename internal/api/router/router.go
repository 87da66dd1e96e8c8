package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "gopos/docs" // registra a especificação OpenAPI
	"gopos/internal/api/cart"
	"gopos/internal/api/product"
	"gopos/internal/api/promotion"
	"gopos/internal/api/purchaseorder"
	"gopos/internal/api/user"
	"gopos/internal/domain"
	"gopos/internal/pkg/cache"
	"gopos/internal/pkg/logger"
	"gopos/internal/pkg/middleware"
)

// Handlers agrupa os handlers já inicializados por injeção de dependências.
type Handlers struct {
	Cart          *cart.Handler
	Product       *product.Handler
	Promotion     *promotion.Handler
	PurchaseOrder *purchaseorder.Handler
	User          *user.Handler
}

// RateLimit configura o limitador global por IP.
type RateLimit struct {
	Cache       cache.Client
	MaxRequests int
	Period      time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, tokenSvc middleware.TokenService, limit RateLimit, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.NewAuthMiddleware(tokenSvc)
	adminOnly := func(fn http.HandlerFunc) http.Handler {
		return auth(middleware.PermissionMiddleware(domain.RoleAdmin)(fn))
	}
	anyUser := func(fn http.HandlerFunc) http.Handler {
		return auth(fn)
	}

	// --- Health check e documentação ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// --- Usuários (públicas) ---
	mux.HandleFunc("POST /v1/register", h.User.RegisterUserHandler)
	mux.HandleFunc("POST /v1/login", h.User.LoginUserHandler)

	// --- Carrinho (qualquer usuário autenticado; o dono é o sujeito do token) ---
	mux.Handle("GET /v1/cart", anyUser(h.Cart.ViewCartHandler))
	mux.Handle("DELETE /v1/cart", anyUser(h.Cart.ClearCartHandler))
	mux.Handle("POST /v1/cart/items", anyUser(h.Cart.AddItemHandler))
	mux.Handle("POST /v1/cart/items/barcode", anyUser(h.Cart.AddByBarcodeHandler))
	mux.Handle("PUT /v1/cart/items/{id}", anyUser(h.Cart.UpdateLineHandler))
	mux.Handle("DELETE /v1/cart/items/{id}", anyUser(h.Cart.RemoveItemHandler))

	// --- Catálogo: leitura para o caixa, escrita só admin ---
	mux.Handle("GET /v1/products", anyUser(h.Product.ListProductsHandler))
	mux.Handle("GET /v1/products/{id}", anyUser(h.Product.GetProductByIDHandler))
	mux.Handle("POST /v1/products", adminOnly(h.Product.CreateProductHandler))

	// --- Promoções ---
	mux.Handle("GET /v1/promotions/active", anyUser(h.Promotion.ActivePromotionsHandler))
	mux.Handle("POST /v1/promotions", adminOnly(h.Promotion.CreatePromotionHandler))

	// --- Pedidos de compra ---
	mux.Handle("POST /v1/purchase-orders", adminOnly(h.PurchaseOrder.CreatePurchaseOrderHandler))
	mux.Handle("GET /v1/purchase-orders/{id}", adminOnly(h.PurchaseOrder.GetPurchaseOrderHandler))
	mux.Handle("POST /v1/purchase-orders/{id}/receive", adminOnly(h.PurchaseOrder.ReceiveOrderHandler))

	var handler http.Handler = mux
	if limit.Cache != nil && limit.MaxRequests > 0 {
		handler = middleware.RateLimiter(limit.Cache, limit.MaxRequests, limit.Period, log)(handler)
	}
	return middleware.LoggingMiddleware(log)(handler)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
