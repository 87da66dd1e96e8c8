package purchaseorder

import (
	"context"
	"encoding/json"
	"net/http"

	"gopos/internal/api/response"
	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
)

// ReceivingService define o contrato dos pedidos de compra e do recebimento.
type ReceivingService interface {
	CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderRequest) (domain.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error)
	ReceiveOrder(ctx context.Context, purchaseOrderID string) (domain.ReceivingReport, error)
}

// Handler agrupa os handlers de pedido de compra.
type Handler struct {
	Service ReceivingService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc ReceivingService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	response.JSON(w, h.Logger, successStatus, data)
}

// CreatePurchaseOrderHandler lida com POST /v1/purchase-orders.
// @Summary Cria um pedido de compra pendente
// @Tags purchase-orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param order body domain.PurchaseOrderRequest true "Linhas do pedido"
// @Success 201 {object} domain.PurchaseOrder
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse "Produto não existe"
// @Router /purchase-orders [post]
func (h *Handler) CreatePurchaseOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}
	order, err := h.Service.CreatePurchaseOrder(r.Context(), req)
	h.handleServiceResponse(w, r, order, err, http.StatusCreated)
}

// GetPurchaseOrderHandler lida com GET /v1/purchase-orders/{id}.
// @Summary Busca um pedido de compra com as linhas
// @Tags purchase-orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.PurchaseOrder
// @Failure 404 {object} domain.ErrorResponse
// @Router /purchase-orders/{id} [get]
func (h *Handler) GetPurchaseOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.GetPurchaseOrder(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, order, err, http.StatusOK)
}

// ReceiveOrderHandler lida com POST /v1/purchase-orders/{id}/receive.
// @Summary Recebe o pedido e repõe o estoque
// @Description Linhas de produtos apagados ou com quantidade não positiva são ignoradas e listadas em skipped_products.
// @Tags purchase-orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do pedido"
// @Success 200 {object} domain.ReceivingReport
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Pedido já recebido"
// @Router /purchase-orders/{id}/receive [post]
func (h *Handler) ReceiveOrderHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.ReceiveOrder(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, report, err, http.StatusOK)
}
