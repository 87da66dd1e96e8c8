package receivingservice_test

import (
	"context"
	"errors"
	"math"
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
	"gopos/internal/repository/memrepo"
	"gopos/internal/service/receivingservice"
)

// MockPurchaseOrderRepository executa fn com o ReceivingTx configurado em On("InTx").
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) InTx(ctx context.Context, fn func(tx domain.ReceivingTx) error) error {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(domain.ReceivingTx); ok {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func (m *MockPurchaseOrderRepository) Create(ctx context.Context, order domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(domain.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.PurchaseOrder), args.Error(1)
}

type MockReceivingTx struct {
	mock.Mock
}

func (m *MockReceivingTx) LockOrder(ctx context.Context, orderID string) (domain.PurchaseOrder, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(domain.PurchaseOrder), args.Error(1)
}

func (m *MockReceivingTx) LockProduct(ctx context.Context, productID string) (domain.Product, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockReceivingTx) IncrementStock(ctx context.Context, product domain.Product, delta int) (domain.StockChange, error) {
	args := m.Called(ctx, product, delta)
	return args.Get(0).(domain.StockChange), args.Error(1)
}

func (m *MockReceivingTx) MarkReceived(ctx context.Context, orderID string, at time.Time) error {
	return m.Called(ctx, orderID, at).Error(0)
}

type MockProductReader struct {
	mock.Mock
}

func (m *MockProductReader) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[string]domain.Product), args.Error(1)
}

type MockCacheInvalidator struct {
	mock.Mock
}

func (m *MockCacheInvalidator) Invalidate(ctx context.Context, productIDs ...string) {
	m.Called(ctx, productIDs)
}

var testNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newService(repo receivingservice.PurchaseOrderRepository, products receivingservice.ProductReader, cache receivingservice.CacheInvalidator) *receivingservice.Service {
	return receivingservice.NewService(repo, products, cache, logger.NewLogger("debug")).
		WithClock(func() time.Time { return testNow })
}

// TestReceiveOrder_SkipNotAbort testa que linhas ruins viram skipped sem abortar o pedido.
func TestReceiveOrder_SkipNotAbort(t *testing.T) {
	mockRepo := new(MockPurchaseOrderRepository)
	mockTx := new(MockReceivingTx)
	mockCache := new(MockCacheInvalidator)
	svc := newService(mockRepo, new(MockProductReader), mockCache)

	order := domain.PurchaseOrder{
		ID:          "po-1",
		OrderNumber: "PO-20261017-ABC123",
		Status:      domain.PurchaseOrderPending,
		Lines: []domain.PurchaseOrderLine{
			{ProductID: "gone", Quantity: 3},
			{ProductID: "p1", Quantity: 0},
			{ProductID: "p2", Quantity: 2, Pack: true, PackSize: 6},
		},
	}
	p1 := domain.Product{ID: "p1", Name: "Arroz", BaseStock: 4, PackSize: 5, Version: 3}
	p2 := domain.Product{ID: "p2", Name: "Feijão", BaseStock: 1, PackSize: 10, Version: 7}

	mockRepo.On("InTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("LockOrder", mock.Anything, "po-1").Return(order, nil)
	mockTx.On("LockProduct", mock.Anything, "gone").Return(domain.Product{}, apperror.NewNotFoundError("produto"))
	mockTx.On("LockProduct", mock.Anything, "p1").Return(p1, nil)
	mockTx.On("LockProduct", mock.Anything, "p2").Return(p2, nil)
	// o packSize do pedido (6) vale sobre o atual (10)
	mockTx.On("IncrementStock", mock.Anything, p2, 12).Return(domain.StockChange{ProductID: "p2", OldQuantity: 1, NewQuantity: 13, Version: 8}, nil)
	mockTx.On("MarkReceived", mock.Anything, "po-1", testNow).Return(nil)
	mockCache.On("Invalidate", mock.Anything, []string{"p2"}).Return()

	report, err := svc.ReceiveOrder(context.Background(), "po-1")

	require.NoError(t, err)
	assert.Equal(t, "PO-20261017-ABC123", report.OrderNumber)
	require.Len(t, report.AddedProducts, 1)
	assert.Equal(t, domain.ReceivedProduct{ProductID: "p2", ProductName: "Feijão", AddedQuantity: 12, OldQuantity: 1, NewQuantity: 13}, report.AddedProducts[0])
	assert.Equal(t, []domain.SkippedProduct{
		{ProductID: "gone", Reason: domain.SkipReasonProductMissing},
		{ProductID: "p1", Reason: domain.SkipReasonNonPositiveQuantity},
	}, report.SkippedProducts)
	assert.Contains(t, report.Message, "PO-20261017-ABC123")
	mockTx.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

// TestReceiveOrder_AlreadyCompleted testa a guarda de reentrada.
func TestReceiveOrder_AlreadyCompleted(t *testing.T) {
	mockRepo := new(MockPurchaseOrderRepository)
	mockTx := new(MockReceivingTx)
	svc := newService(mockRepo, new(MockProductReader), nil)

	mockRepo.On("InTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("LockOrder", mock.Anything, "po-1").Return(domain.PurchaseOrder{ID: "po-1", Status: domain.PurchaseOrderCompleted}, nil)

	_, err := svc.ReceiveOrder(context.Background(), "po-1")

	var conflict *apperror.ConflictError
	assert.True(t, errors.As(err, &conflict))
	mockTx.AssertNotCalled(t, "LockProduct", mock.Anything, mock.Anything)
	mockTx.AssertNotCalled(t, "MarkReceived", mock.Anything, mock.Anything, mock.Anything)
}

// TestReceiveOrder_NotFound testa o pedido inexistente.
func TestReceiveOrder_NotFound(t *testing.T) {
	mockRepo := new(MockPurchaseOrderRepository)
	mockTx := new(MockReceivingTx)
	svc := newService(mockRepo, new(MockProductReader), nil)

	mockRepo.On("InTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("LockOrder", mock.Anything, "missing").Return(domain.PurchaseOrder{}, apperror.NewNotFoundError("pedido"))

	_, err := svc.ReceiveOrder(context.Background(), "missing")

	assert.True(t, apperror.IsNotFound(err))
}

// TestReceiveOrder_InfrastructureErrorAborts testa que falha de escrita aborta o pedido inteiro.
func TestReceiveOrder_InfrastructureErrorAborts(t *testing.T) {
	mockRepo := new(MockPurchaseOrderRepository)
	mockTx := new(MockReceivingTx)
	svc := newService(mockRepo, new(MockProductReader), nil)

	p1 := domain.Product{ID: "p1", Name: "Arroz", BaseStock: 4, PackSize: 1, Version: 1}
	mockRepo.On("InTx", mock.Anything).Return(mockTx, nil)
	mockTx.On("LockOrder", mock.Anything, "po-1").Return(domain.PurchaseOrder{ID: "po-1", Status: domain.PurchaseOrderPending, Lines: []domain.PurchaseOrderLine{{ProductID: "p1", Quantity: 1}}}, nil)
	mockTx.On("LockProduct", mock.Anything, "p1").Return(p1, nil)
	mockTx.On("IncrementStock", mock.Anything, p1, 1).Return(domain.StockChange{}, apperror.NewDBError("update", errors.New("connection reset")))

	_, err := svc.ReceiveOrder(context.Background(), "po-1")

	status, _, _ := apperror.MapToHTTPStatus(err)
	assert.Equal(t, 500, status)
	mockTx.AssertNotCalled(t, "MarkReceived", mock.Anything, mock.Anything, mock.Anything)
}

// TestReceiveOrder_Additivity reproduz o exemplo de dois produtos sobre o store em memória.
func TestReceiveOrder_Additivity(t *testing.T) {
	ctx := context.Background()
	store := memrepo.New(logger.NewNop())
	products := store.Products()

	p1, err := products.Save(ctx, domain.Product{Name: "Café", BaseStock: 10, PackSize: 1, UnitPrice: decimal.NewFromInt(12)})
	require.NoError(t, err)
	p2, err := products.Save(ctx, domain.Product{Name: "Açúcar", BaseStock: 0, PackSize: 6, UnitPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)

	svc := newService(store.PurchaseOrders(), products, nil)
	order, err := svc.CreatePurchaseOrder(ctx, domain.PurchaseOrderRequest{Lines: []domain.PurchaseOrderLine{
		{ProductID: p1.ID, Quantity: 2},
		{ProductID: p2.ID, Quantity: 3, Pack: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderPending, order.Status)
	assert.Regexp(t, `^PO-20261017-[0-9A-F]{6}$`, order.OrderNumber)
	assert.Equal(t, 6, order.Lines[1].PackSize)

	report, err := svc.ReceiveOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, report.AddedProducts, 2)
	assert.Equal(t, 10, report.AddedProducts[0].OldQuantity)
	assert.Equal(t, 12, report.AddedProducts[0].NewQuantity)
	assert.Equal(t, 0, report.AddedProducts[1].OldQuantity)
	assert.Equal(t, 18, report.AddedProducts[1].NewQuantity)

	got1, err := products.FindByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got1.BaseStock)
	got2, err := products.FindByID(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 18, got2.BaseStock)

	// segunda chamada: Conflict e estoque intacto
	_, err = svc.ReceiveOrder(ctx, order.ID)
	var conflict *apperror.ConflictError
	require.True(t, errors.As(err, &conflict))
	again, err := products.FindByID(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 18, again.BaseStock)

	stored, err := svc.GetPurchaseOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderCompleted, stored.Status)
	require.NotNil(t, stored.ReceivedAt)
	assert.True(t, stored.ReceivedAt.Equal(testNow))
}

// TestCreatePurchaseOrder_Validation testa as validações de entrada.
func TestCreatePurchaseOrder_Validation(t *testing.T) {
	svc := newService(new(MockPurchaseOrderRepository), new(MockProductReader), nil)
	ctx := context.Background()

	_, err := svc.CreatePurchaseOrder(ctx, domain.PurchaseOrderRequest{})
	var validation *apperror.ValidationError
	assert.True(t, errors.As(err, &validation))

	_, err = svc.CreatePurchaseOrder(ctx, domain.PurchaseOrderRequest{Lines: []domain.PurchaseOrderLine{{ProductID: "p1", Quantity: -1}}})
	var invalidQty *apperror.InvalidQuantityError
	assert.True(t, errors.As(err, &invalidQty))
}

// TestCreatePurchaseOrder_UnknownProduct testa o NotFound para produto inexistente.
func TestCreatePurchaseOrder_UnknownProduct(t *testing.T) {
	mockProducts := new(MockProductReader)
	mockRepo := new(MockPurchaseOrderRepository)
	svc := newService(mockRepo, mockProducts, nil)

	mockProducts.On("FindByIDs", mock.Anything, []string{"nope"}).Return(map[string]domain.Product{}, nil)

	_, err := svc.CreatePurchaseOrder(context.Background(), domain.PurchaseOrderRequest{Lines: []domain.PurchaseOrderLine{{ProductID: "nope", Quantity: 1}}})

	assert.True(t, apperror.IsNotFound(err))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestCreatePurchaseOrder_PackOverflow testa a recusa de pacotes cuja conversão não cabe em int.
func TestCreatePurchaseOrder_PackOverflow(t *testing.T) {
	mockProducts := new(MockProductReader)
	mockRepo := new(MockPurchaseOrderRepository)
	svc := newService(mockRepo, mockProducts, nil)
	product := domain.Product{ID: "p1", Name: "Água 500ml", PackSize: 6}

	mockProducts.On("FindByIDs", mock.Anything, []string{"p1"}).Return(map[string]domain.Product{"p1": product}, nil)

	_, err := svc.CreatePurchaseOrder(context.Background(), domain.PurchaseOrderRequest{Lines: []domain.PurchaseOrderLine{
		{ProductID: "p1", Quantity: math.MaxInt/6 + 1, Pack: true},
	}})

	var invalidQty *apperror.InvalidQuantityError
	assert.True(t, errors.As(err, &invalidQty))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestGetPurchaseOrder_UnknownID testa que qualquer ID desconhecido, com ou sem formato de UUID,
// responde NotFound, como no recebimento.
func TestGetPurchaseOrder_UnknownID(t *testing.T) {
	store := memrepo.New(logger.NewNop())
	svc := newService(store.PurchaseOrders(), store.Products(), nil)
	ctx := context.Background()

	_, err := svc.GetPurchaseOrder(ctx, "not-a-uuid")
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.GetPurchaseOrder(ctx, uuid.New().String())
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.ReceiveOrder(ctx, "not-a-uuid")
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.GetPurchaseOrder(ctx, " ")
	var validation *apperror.ValidationError
	assert.True(t, errors.As(err, &validation))
}

// TestGetPurchaseOrder_Found testa a leitura do pedido pelo repositório.
func TestGetPurchaseOrder_Found(t *testing.T) {
	mockRepo := new(MockPurchaseOrderRepository)
	svc := newService(mockRepo, new(MockProductReader), nil)

	id := uuid.New().String()
	mockRepo.On("FindByID", mock.Anything, id).Return(domain.PurchaseOrder{ID: id}, nil)
	got, err := svc.GetPurchaseOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}
