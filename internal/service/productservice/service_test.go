package productservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
	"gopos/internal/service/productservice"
)

// MockProductRepository é uma implementação mock da interface ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	args := m.Called(ctx, product)
	if echo, ok := args.Get(0).(func(domain.Product) domain.Product); ok {
		return echo(product), args.Error(1)
	}
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductRepository) FindByBarcode(ctx context.Context, code string) (domain.Product, bool, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.Product), args.Bool(1), args.Error(2)
}

var (
	testNow    = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	testPolicy = domain.StatusPolicy{LowStockThreshold: 5, NearExpiryDays: 7}
)

func newService(repo productservice.ProductRepository) *productservice.Service {
	return productservice.NewService(repo, testPolicy, logger.NewLogger("debug")).
		WithClock(func() time.Time { return testNow })
}

func validProduct() domain.Product {
	return domain.Product{
		Name:        "Biscoito",
		UnitBarcode: "111",
		PackBarcode: "222",
		BaseStock:   3,
		PackSize:    20,
		UnitPrice:   decimal.RequireFromString("3.00"),
		PackPrice:   decimal.RequireFromString("55.00"),
	}
}

// TestCreateProduct_Success testa o cadastro com as flags derivadas.
func TestCreateProduct_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := newService(mockRepo)

	mockRepo.On("FindByBarcode", mock.Anything, "111").Return(domain.Product{}, false, apperror.NewNotFoundError("x"))
	mockRepo.On("FindByBarcode", mock.Anything, "222").Return(domain.Product{}, false, apperror.NewNotFoundError("x"))
	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(p domain.Product) bool {
		return p.ID != "" && p.Version == 1 && p.CreatedAt.Equal(testNow)
	})).Return(func(p domain.Product) domain.Product { return p }, nil)

	created, err := svc.CreateProduct(context.Background(), validProduct())

	require.NoError(t, err)
	assert.Equal(t, []domain.StatusFlag{domain.FlagLowStock}, created.StatusFlags)
	mockRepo.AssertExpectations(t)
}

// TestCreateProduct_Fail_Validation cobre as regras de validação.
func TestCreateProduct_Fail_Validation(t *testing.T) {
	cases := map[string]func(p *domain.Product){
		"sem nome":         func(p *domain.Product) { p.Name = "  " },
		"pack size zero":   func(p *domain.Product) { p.PackSize = 0 },
		"estoque negativo": func(p *domain.Product) { p.BaseStock = -1 },
		"preço negativo":   func(p *domain.Product) { p.PackPrice = decimal.NewFromInt(-1) },
		"barcodes iguais":  func(p *domain.Product) { p.PackBarcode = p.UnitBarcode },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			svc := newService(mockRepo)
			p := validProduct()
			mutate(&p)

			_, err := svc.CreateProduct(context.Background(), p)

			var validation *apperror.ValidationError
			assert.True(t, errors.As(err, &validation))
			mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

// TestCreateProduct_Fail_DuplicateBarcode testa o conflito de código de barras.
func TestCreateProduct_Fail_DuplicateBarcode(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := newService(mockRepo)

	mockRepo.On("FindByBarcode", mock.Anything, "111").Return(domain.Product{ID: "other"}, false, nil)

	_, err := svc.CreateProduct(context.Background(), validProduct())

	var conflict *apperror.ConflictError
	assert.True(t, errors.As(err, &conflict))
}

// TestGetProductByID_Success testa a busca com flags de validade.
func TestGetProductByID_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := newService(mockRepo)

	id := uuid.New().String()
	exp := testNow.AddDate(0, 0, 3)
	mockRepo.On("FindByID", mock.Anything, id).Return(domain.Product{ID: id, Name: "Iogurte", BaseStock: 0, ExpirationDate: &exp}, nil)

	product, err := svc.GetProductByID(context.Background(), id)

	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.StatusFlag{domain.FlagOutOfStock, domain.FlagNearExpiry}, product.StatusFlags)
}

// TestGetProductByID_Fail_InvalidID testa o formato do ID.
func TestGetProductByID_Fail_InvalidID(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := newService(mockRepo)

	_, err := svc.GetProductByID(context.Background(), "abc")

	var validation *apperror.ValidationError
	assert.True(t, errors.As(err, &validation))
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// TestGetProductByID_Fail_NotFound testa o 404.
func TestGetProductByID_Fail_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := newService(mockRepo)

	id := uuid.New().String()
	mockRepo.On("FindByID", mock.Anything, id).Return(domain.Product{}, apperror.NewNotFoundError("x"))

	_, err := svc.GetProductByID(context.Background(), id)

	assert.True(t, apperror.IsNotFound(err))
}

// TestGetProducts_Success_WithFilters testa a busca de produtos com filtro por nome.
func TestGetProducts_Success_WithFilters(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := newService(mockRepo)

	expected := []domain.Product{{ID: uuid.New().String(), Name: "Filtered Product", BaseStock: 50}}
	mockRepo.On("FindAll", mock.Anything, domain.ProductFilter{Page: 1, Limit: 10, Name: "Filtered"}).Return(expected, nil)

	products, err := svc.GetProducts(context.Background(), 0, 500, map[string]string{"name": " Filtered "})

	assert.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Empty(t, products[0].StatusFlags)
	mockRepo.AssertExpectations(t)
}

// TestGetProducts_Fail_RepoError testa um erro do repositório.
func TestGetProducts_Fail_RepoError(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := newService(mockRepo)

	mockRepo.On("FindAll", mock.Anything, domain.ProductFilter{Page: 2, Limit: 5}).
		Return([]domain.Product{}, apperror.NewDBError("list", errors.New("db down")))

	products, err := svc.GetProducts(context.Background(), 2, 5, nil)

	assert.Error(t, err)
	assert.Nil(t, products)
}
