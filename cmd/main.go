package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"gopos/config"
	"gopos/internal/api/cart"
	"gopos/internal/api/product"
	"gopos/internal/api/promotion"
	"gopos/internal/api/purchaseorder"
	"gopos/internal/api/router"
	"gopos/internal/api/user"
	"gopos/internal/domain"
	"gopos/internal/pkg/cache"
	"gopos/internal/pkg/database"
	"gopos/internal/pkg/logger"
	"gopos/internal/pkg/token"
	"gopos/internal/repository/cartrepo"
	"gopos/internal/repository/memrepo"
	"gopos/internal/repository/productrepo"
	"gopos/internal/repository/promotionrepo"
	"gopos/internal/repository/purchaseorderrepo"
	"gopos/internal/repository/userrepo"
	"gopos/internal/service/cartservice"
	"gopos/internal/service/productservice"
	"gopos/internal/service/promotionservice"
	"gopos/internal/service/receivingservice"
	"gopos/internal/service/userservice"
)

// @title GoPOS API
// @version 1.0
// @description Carrinho do caixa, catálogo, promoções e recebimento de pedidos de compra.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log.Println("⚡ Inicializando serviço GoPOS...")
	if err := godotenv.Load(); err != nil {
		// As variáveis podem vir do ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment, "store": cfg.StoreDriver})

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	policy := domain.StatusPolicy{LowStockThreshold: cfg.LowStockThreshold, NearExpiryDays: cfg.NearExpiryDays}

	var (
		handlers    router.Handlers
		cacheClient cache.Client
	)

	switch cfg.StoreDriver {
	case "memory":
		cacheClient = cache.NewMemoryClient()
		handlers = memoryHandlers(cfg, policy, tokenSvc, appLog)
		appLog.Warn("Usando store em memória: os dados não sobrevivem ao reinício.", nil)
	default:
		db, err := database.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			appLog.Fatal("Falha ao conectar ao banco de dados.", err)
		}
		defer db.Close()
		appLog.Info("Conexão PostgreSQL estabelecida.", nil)

		cacheClient, err = cache.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			// Sem Redis o cache só erra e cai no banco.
			appLog.Warn("Redis indisponível; seguindo sem cache.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		} else {
			appLog.Info("Conexão Redis estabelecida.", nil)
		}
		handlers = postgresHandlers(db, cacheClient, cfg, policy, tokenSvc, appLog)
	}

	limit := router.RateLimit{Cache: cacheClient, MaxRequests: cfg.RateLimitMaxRequests, Period: cfg.RateLimitPeriod}
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(handlers, tokenSvc, limit, appLog),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLog.Info("Servidor GoPOS ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}
	appLog.Info("Servidor encerrado com sucesso.", nil)
}

// postgresHandlers monta Repository -> Service -> Handler sobre Postgres e Redis.
func postgresHandlers(db *sqlx.DB, cacheClient cache.Client, cfg *config.Config, policy domain.StatusPolicy, tokenSvc *token.Service, appLog logger.Logger) router.Handlers {
	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, appLog)
	promoRepo := promotionrepo.NewPromotionRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, appLog)
	cartRepo := cartrepo.NewCartRepository(db, cfg.DBTimeout, appLog)
	orderRepo := purchaseorderrepo.NewPurchaseOrderRepository(db, cfg.DBTimeout, appLog)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, appLog)
	appLog.Debug("Repositórios PostgreSQL inicializados.", nil)

	return router.Handlers{
		Cart:          cart.NewHandler(cartservice.NewService(cartRepo, productRepo, promoRepo, appLog), appLog),
		Product:       product.NewHandler(productservice.NewService(productRepo, policy, appLog), appLog),
		Promotion:     promotion.NewHandler(promotionservice.NewService(promoRepo, productRepo, appLog), appLog),
		PurchaseOrder: purchaseorder.NewHandler(receivingservice.NewService(orderRepo, productRepo, productRepo, appLog), appLog),
		User:          user.NewHandler(userservice.NewService(userRepo, tokenSvc, cfg.AdminEmails, appLog), appLog),
	}
}

// memoryHandlers monta o mesmo grafo sobre o store em memória.
func memoryHandlers(cfg *config.Config, policy domain.StatusPolicy, tokenSvc *token.Service, appLog logger.Logger) router.Handlers {
	store := memrepo.New(appLog)

	return router.Handlers{
		Cart:          cart.NewHandler(cartservice.NewService(store.Carts(), store.Products(), store.Promotions(), appLog), appLog),
		Product:       product.NewHandler(productservice.NewService(store.Products(), policy, appLog), appLog),
		Promotion:     promotion.NewHandler(promotionservice.NewService(store.Promotions(), store.Products(), appLog), appLog),
		PurchaseOrder: purchaseorder.NewHandler(receivingservice.NewService(store.PurchaseOrders(), store.Products(), nil, appLog), appLog),
		User:          user.NewHandler(userservice.NewService(store.Users(), tokenSvc, cfg.AdminEmails, appLog), appLog),
	}
}
