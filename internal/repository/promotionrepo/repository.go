package promotionrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gopos/internal/domain"
	"gopos/internal/errors"
	"gopos/internal/pkg/cache"
	"gopos/internal/pkg/logger"
)

// promotionCacheKey guarda a promoção ativa de um produto num dia (AAAA-MM-DD).
const promotionCacheKey = "promotion:active:%s:%s"

// noPromotion marca no cache que o produto não tem promoção no dia.
const noPromotion = "none"

const promotionColumns = `id, product_id, discounted_price, validity_start, validity_end, created_at`

// PromotionRepository persiste promoções e responde a consulta em lote de promoções ativas.
type PromotionRepository struct {
	DB        *sqlx.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

var _ domain.PromotionLookup = (*PromotionRepository)(nil)

// NewPromotionRepository cria e retorna uma nova instância do Repositório de Promoções.
func NewPromotionRepository(db *sqlx.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, log logger.Logger) *PromotionRepository {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &PromotionRepository{DB: db, Cache: cacheClient, DBTimeout: dbTimeout, CacheTTL: cacheTTL, logger: log}
}

func cacheKey(productID string, on time.Time) string {
	return fmt.Sprintf(promotionCacheKey, productID, domain.Day(on).Format("2006-01-02"))
}

// Save grava a promoção e descarta a entrada de cache do dia corrente do produto.
// Outros dias expiram pelo TTL.
func (r *PromotionRepository) Save(ctx context.Context, promo domain.Promotion) (domain.Promotion, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	_, err := r.DB.NamedExecContext(ctxTimeout, `
		INSERT INTO promotions (`+promotionColumns+`)
		VALUES (:id, :product_id, :discounted_price, :validity_start, :validity_end, :created_at)`, promo)
	if err != nil {
		r.logger.Error("Falha ao inserir promoção no DB.", err)
		return domain.Promotion{}, errors.NewDBError("failed to insert promotion", err)
	}

	if err := r.Cache.Delete(ctxTimeout, cacheKey(promo.ProductID, time.Now())); err != nil {
		r.logger.Warn("Falha ao invalidar cache de promoção.", map[string]interface{}{"product_id": promo.ProductID, "error": err.Error()})
	}
	return promo, nil
}

// ActiveFor consulta o cache por produto e busca no DB, numa única query, só os
// produtos que faltaram. O resultado negativo também é cacheado.
func (r *PromotionRepository) ActiveFor(ctx context.Context, productIDs []string, on time.Time) (map[string]domain.Promotion, error) {
	out := make(map[string]domain.Promotion, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	misses := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		cached, err := r.Cache.Get(ctxTimeout, cacheKey(id, on))
		if err != nil {
			if err != cache.ErrCacheMiss {
				r.logger.Warn("Falha ao ler promoção do cache.", map[string]interface{}{"product_id": id, "error": err.Error()})
			}
			misses = append(misses, id)
			continue
		}
		if cached == noPromotion {
			continue
		}
		var p domain.Promotion
		if json.Unmarshal([]byte(cached), &p) != nil {
			misses = append(misses, id)
			continue
		}
		out[id] = p
	}
	if len(misses) == 0 {
		return out, nil
	}

	day := domain.Day(on)
	var rows []domain.Promotion
	err := r.DB.SelectContext(ctxTimeout, &rows, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE product_id = ANY($1) AND validity_start <= $2 AND validity_end >= $2`,
		pq.Array(misses), day)
	if err != nil {
		return nil, errors.NewDBError("Falha ao consultar promoções ativas", err)
	}

	byProduct := make(map[string][]domain.Promotion, len(misses))
	for _, p := range rows {
		byProduct[p.ProductID] = append(byProduct[p.ProductID], p)
	}

	for _, id := range misses {
		value := noPromotion
		if p, ok := domain.PickActive(byProduct[id], on); ok {
			out[id] = p
			if b, err := json.Marshal(p); err == nil {
				value = string(b)
			}
		}
		if err := r.Cache.Set(ctxTimeout, cacheKey(id, on), value, r.CacheTTL); err != nil {
			r.logger.Warn("Falha ao gravar promoção no cache.", map[string]interface{}{"product_id": id, "error": err.Error()})
		}
	}
	return out, nil
}
