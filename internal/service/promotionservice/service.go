package promotionservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
)

// PromotionRepository grava promoções e responde a consulta em lote.
type PromotionRepository interface {
	domain.PromotionLookup
	Save(ctx context.Context, promo domain.Promotion) (domain.Promotion, error)
}

// ProductFinder é usado para validar o preço promocional contra o preço de tabela.
type ProductFinder interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
}

// Service administra as promoções.
type Service struct {
	repo     PromotionRepository
	products ProductFinder
	logger   logger.Logger
	now      func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Promoções.
func NewService(repo PromotionRepository, products ProductFinder, logger logger.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger, now: time.Now}
}

// WithClock troca o relógio usado como "hoje".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreatePromotion exige start <= end e 0 <= preço promocional < preço unitário atual.
func (s *Service) CreatePromotion(ctx context.Context, req domain.PromotionRequest) (domain.Promotion, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return domain.Promotion{}, apperror.NewValidationError("product_id é obrigatório.")
	}
	if req.ValidityStart.IsZero() || req.ValidityEnd.IsZero() {
		return domain.Promotion{}, apperror.NewValidationError("validity_start e validity_end são obrigatórios.")
	}
	start, end := domain.Day(req.ValidityStart), domain.Day(req.ValidityEnd)
	if start.After(end) {
		return domain.Promotion{}, apperror.NewValidationError("validity_start deve ser anterior ou igual a validity_end.")
	}
	if req.DiscountedPrice.IsNegative() {
		return domain.Promotion{}, apperror.NewValidationError("O preço promocional não pode ser negativo.")
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return domain.Promotion{}, err
	}
	if !req.DiscountedPrice.LessThan(product.UnitPrice) {
		return domain.Promotion{}, apperror.NewValidationError(
			fmt.Sprintf("O preço promocional deve ser menor que o preço unitário (%s).", product.UnitPrice.StringFixed(2)))
	}

	promo := domain.Promotion{
		ID:              uuid.New().String(),
		ProductID:       product.ID,
		DiscountedPrice: req.DiscountedPrice,
		ValidityStart:   start,
		ValidityEnd:     end,
		CreatedAt:       s.now().UTC(),
	}
	saved, err := s.repo.Save(ctx, promo)
	if err != nil {
		s.logger.Error("Falha ao salvar promoção.", err)
		return domain.Promotion{}, err
	}
	s.logger.Info("Promoção criada.", map[string]interface{}{
		"promotion_id": saved.ID,
		"product_id":   saved.ProductID,
		"price":        saved.DiscountedPrice.String(),
	})
	return saved, nil
}

// ActivePromotions devolve a promoção ativa hoje para cada produto que tiver uma.
func (s *Service) ActivePromotions(ctx context.Context, productIDs []string) (map[string]domain.Promotion, error) {
	ids := make([]string, 0, len(productIDs))
	seen := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperror.NewValidationError("Informe ao menos um product_id.")
	}
	return s.repo.ActiveFor(ctx, ids, s.now())
}
