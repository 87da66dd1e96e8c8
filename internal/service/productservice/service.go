package productservice

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

// ProductRepository define o contrato (interface) que este Serviço espera
// da camada de Persistência (DB, Cache).
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	FindByBarcode(ctx context.Context, code string) (domain.Product, bool, error)
}

// Service é a estrutura que implementa o catálogo de produtos.
type Service struct {
	repo   ProductRepository
	policy domain.StatusPolicy
	logger logger.Logger
	now    func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, policy domain.StatusPolicy, logger logger.Logger) *Service {
	return &Service{repo: repo, policy: policy, logger: logger, now: time.Now}
}

// WithClock troca o relógio usado para derivar as flags.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateProduct valida e cadastra um produto.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.UnitBarcode = strings.TrimSpace(product.UnitBarcode)
	product.PackBarcode = strings.TrimSpace(product.PackBarcode)

	if err := validate(product); err != nil {
		s.logger.Warn("Produto inválido.", map[string]interface{}{"name": product.Name, "reason": err.Error()})
		return domain.Product{}, err
	}

	for _, code := range []string{product.UnitBarcode, product.PackBarcode} {
		if code == "" {
			continue
		}
		_, _, err := s.repo.FindByBarcode(ctx, code)
		if err == nil {
			return domain.Product{}, apperror.NewConflictError(fmt.Sprintf("Código de barras %s já cadastrado.", code))
		}
		if !apperror.IsNotFound(err) {
			return domain.Product{}, err
		}
	}

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := s.now().UTC()
	product.Version = 1
	product.CreatedAt = now
	product.UpdatedAt = now

	created, err := s.repo.Save(ctx, product)
	if err != nil {
		s.logger.Error("Falha ao salvar produto.", err)
		return domain.Product{}, fmt.Errorf("falha ao salvar produto no repositório: %w", err)
	}

	created.StatusFlags = created.DeriveStatusFlags(s.now(), s.policy)
	s.logger.Info("Produto criado.", map[string]interface{}{"product_id": created.ID, "name": created.Name})
	return created, nil
}

func validate(p domain.Product) error {
	switch {
	case p.Name == "":
		return apperror.NewValidationError("O nome do produto é obrigatório.")
	case p.PackSize < 1:
		return apperror.NewValidationError("pack_size deve ser ao menos 1.")
	case p.BaseStock < 0:
		return apperror.NewValidationError("O estoque não pode ser negativo.")
	case p.UnitPrice.IsNegative() || p.PackPrice.IsNegative() || p.PurchasePrice.IsNegative():
		return apperror.NewValidationError("Os preços não podem ser negativos.")
	case p.UnitBarcode != "" && p.UnitBarcode == p.PackBarcode:
		return apperror.NewValidationError("Os códigos de barras da unidade e do pacote devem ser diferentes.")
	}
	return nil
}

// GetProductByID busca um produto e deriva as flags de estado.
func (s *Service) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não foi encontrado.", id))
		}
		return domain.Product{}, err
	}

	product.StatusFlags = product.DeriveStatusFlags(s.now(), s.policy)
	return product, nil
}

// GetProducts lista produtos com paginação e filtros opcionais (name).
func (s *Service) GetProducts(ctx context.Context, page, limit int, filters map[string]string) ([]domain.Product, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	filter := domain.ProductFilter{Page: page, Limit: limit}
	if name, ok := filters["name"]; ok {
		filter.Name = strings.TrimSpace(name)
	}

	products, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Falha ao listar produtos.", err)
		return nil, err
	}

	now := s.now()
	for i := range products {
		products[i].StatusFlags = products[i].DeriveStatusFlags(now, s.policy)
	}
	return products, nil
}
