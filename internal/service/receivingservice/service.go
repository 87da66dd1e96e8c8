package receivingservice

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

// PurchaseOrderRepository define o contrato que o Serviço de Recebimento espera da
// camada de Persistência.
type PurchaseOrderRepository interface {
	InTx(ctx context.Context, fn func(tx domain.ReceivingTx) error) error
	Create(ctx context.Context, order domain.PurchaseOrder) (domain.PurchaseOrder, error)
	FindByID(ctx context.Context, id string) (domain.PurchaseOrder, error)
}

// ProductReader é usado na criação do pedido para validar produtos e capturar packSize.
type ProductReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// CacheInvalidator descarta leituras em cache de produtos cujo estoque mudou.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, productIDs ...string)
}

// Service converte pedidos de compra recebidos em incrementos de estoque.
type Service struct {
	repo     PurchaseOrderRepository
	products ProductReader
	cache    CacheInvalidator
	logger   logger.Logger
	now      func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Recebimento.
// cache pode ser nil.
func NewService(repo PurchaseOrderRepository, products ProductReader, cache CacheInvalidator, logger logger.Logger) *Service {
	return &Service{repo: repo, products: products, cache: cache, logger: logger, now: time.Now}
}

// WithClock troca o relógio usado em receivedAt e no número do pedido.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ReceiveOrder aplica cada linha do pedido ao estoque de forma independente: uma linha
// ruim vira "skipped", nunca aborta o pedido. O pedido vai para completed na mesma
// transação, e um pedido já completed é recusado com Conflict sem tocar no estoque.
func (s *Service) ReceiveOrder(ctx context.Context, purchaseOrderID string) (domain.ReceivingReport, error) {
	s.logger.Debug("Iniciando recebimento de pedido de compra.", map[string]interface{}{"purchase_order_id": purchaseOrderID})

	if strings.TrimSpace(purchaseOrderID) == "" {
		return domain.ReceivingReport{}, apperror.NewValidationError("O ID do pedido de compra é obrigatório.")
	}

	var report domain.ReceivingReport
	err := s.repo.InTx(ctx, func(tx domain.ReceivingTx) error {
		order, err := tx.LockOrder(ctx, purchaseOrderID)
		if err != nil {
			return err
		}
		if order.Status == domain.PurchaseOrderCompleted {
			return apperror.NewConflictError(fmt.Sprintf("Pedido de compra %s já foi recebido.", order.OrderNumber))
		}

		report = domain.ReceivingReport{
			OrderNumber:     order.OrderNumber,
			AddedProducts:   []domain.ReceivedProduct{},
			SkippedProducts: []domain.SkippedProduct{},
		}

		for _, line := range order.Lines {
			added, skipped, err := s.receiveLine(ctx, tx, line)
			if err != nil {
				return err
			}
			if skipped != nil {
				report.SkippedProducts = append(report.SkippedProducts, *skipped)
				continue
			}
			report.AddedProducts = append(report.AddedProducts, *added)
		}

		return tx.MarkReceived(ctx, order.ID, s.now())
	})
	if err != nil {
		if apperror.IsNotFound(err) {
			s.logger.Warn("Pedido de compra não encontrado para recebimento.", map[string]interface{}{"purchase_order_id": purchaseOrderID})
		} else {
			s.logger.Error("Falha ao receber pedido de compra.", err)
		}
		return domain.ReceivingReport{}, err
	}

	if s.cache != nil && len(report.AddedProducts) > 0 {
		ids := make([]string, 0, len(report.AddedProducts))
		for _, a := range report.AddedProducts {
			ids = append(ids, a.ProductID)
		}
		s.cache.Invalidate(ctx, ids...)
	}

	report.Message = fmt.Sprintf("Pedido %s recebido: %d produto(s) atualizado(s), %d ignorado(s).",
		report.OrderNumber, len(report.AddedProducts), len(report.SkippedProducts))

	s.logger.Info("Pedido de compra recebido.", map[string]interface{}{
		"purchase_order_id": purchaseOrderID,
		"order_number":      report.OrderNumber,
		"added":             len(report.AddedProducts),
		"skipped":           len(report.SkippedProducts),
	})
	return report, nil
}

// receiveLine devolve exatamente um desfecho (added ou skipped) ou um erro de
// infraestrutura, que aborta a transação inteira.
func (s *Service) receiveLine(ctx context.Context, tx domain.ReceivingTx, line domain.PurchaseOrderLine) (*domain.ReceivedProduct, *domain.SkippedProduct, error) {
	product, err := tx.LockProduct(ctx, line.ProductID)
	if apperror.IsNotFound(err) {
		s.logger.Warn("Linha ignorada: produto não existe mais.", map[string]interface{}{"product_id": line.ProductID})
		return nil, &domain.SkippedProduct{ProductID: line.ProductID, Reason: domain.SkipReasonProductMissing}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	added := line.ReceivedBaseUnits(product.EffectivePackSize())
	if added <= 0 {
		s.logger.Warn("Linha ignorada: quantidade não positiva.", map[string]interface{}{"product_id": line.ProductID, "quantity": line.Quantity})
		return nil, &domain.SkippedProduct{ProductID: line.ProductID, Reason: domain.SkipReasonNonPositiveQuantity}, nil
	}

	change, err := tx.IncrementStock(ctx, product, added)
	if err != nil {
		return nil, nil, err
	}
	return &domain.ReceivedProduct{
		ProductID:     product.ID,
		ProductName:   product.Name,
		AddedQuantity: added,
		OldQuantity:   change.OldQuantity,
		NewQuantity:   change.NewQuantity,
	}, nil, nil
}

// CreatePurchaseOrder grava um pedido pending. Linhas de pacote sem packSize recebem o
// packSize atual do produto, que passa a valer para o recebimento.
func (s *Service) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderRequest) (domain.PurchaseOrder, error) {
	if len(req.Lines) == 0 {
		return domain.PurchaseOrder{}, apperror.NewValidationError("O pedido de compra precisa de ao menos uma linha.")
	}

	ids := make([]string, 0, len(req.Lines))
	for _, l := range req.Lines {
		if strings.TrimSpace(l.ProductID) == "" {
			return domain.PurchaseOrder{}, apperror.NewValidationError("Toda linha precisa de product_id.")
		}
		if l.Quantity <= 0 {
			return domain.PurchaseOrder{}, apperror.NewInvalidQuantityError(l.Quantity)
		}
		if l.PackSize < 0 {
			return domain.PurchaseOrder{}, apperror.NewValidationError("pack_size não pode ser negativo.")
		}
		ids = append(ids, l.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	now := s.now().UTC()
	order := domain.PurchaseOrder{
		ID:          uuid.New().String(),
		OrderNumber: newOrderNumber(now),
		Status:      domain.PurchaseOrderPending,
		CreatedAt:   now,
		Lines:       make([]domain.PurchaseOrderLine, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		product, ok := products[l.ProductID]
		if !ok {
			return domain.PurchaseOrder{}, apperror.NewNotFoundError(fmt.Sprintf("Produto %s não existe.", l.ProductID))
		}
		line := domain.PurchaseOrderLine{
			ID:              uuid.New().String(),
			PurchaseOrderID: order.ID,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			Pack:            l.Pack,
			PackSize:        l.PackSize,
		}
		if line.Pack && line.PackSize == 0 {
			line.PackSize = product.EffectivePackSize()
		}
		if !line.Qty().Fits(line.PackSize) {
			return domain.PurchaseOrder{}, apperror.NewInvalidQuantityError(line.Quantity)
		}
		order.Lines = append(order.Lines, line)
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		s.logger.Error("Falha ao criar pedido de compra.", err)
		return domain.PurchaseOrder{}, err
	}
	s.logger.Info("Pedido de compra criado.", map[string]interface{}{"id": created.ID, "order_number": created.OrderNumber, "lines": len(created.Lines)})
	return created, nil
}

// GetPurchaseOrder busca um pedido com as linhas.
func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	if strings.TrimSpace(id) == "" {
		return domain.PurchaseOrder{}, apperror.NewValidationError("O ID do pedido de compra é obrigatório.")
	}
	return s.repo.FindByID(ctx, id)
}

// newOrderNumber gera PO-AAAAMMDD-xxxxxx.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("PO-%s-%s", now.Format("20060102"), suffix)
}
