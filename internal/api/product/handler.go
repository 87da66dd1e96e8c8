package product

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"gopos/internal/api/response"
	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
	"gopos/internal/pkg/middleware"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	GetProductByID(ctx context.Context, id string) (domain.Product, error)
	GetProducts(ctx context.Context, page, limit int, filters map[string]string) ([]domain.Product, error)
}

// Handler agrupa todos os métodos de Handler do produto.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	h.Logger.Info("Requisição concluída com sucesso", map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": successStatus,
	})
	response.JSON(w, h.Logger, successStatus, data)
}

// CreateProductHandler lida com a requisição POST /v1/products.
// @Summary Cadastra um produto
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product body domain.Product true "Produto"
// @Success 201 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Código de barras já cadastrado"
// @Router /products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if claims, ok := middleware.GetUserClaimsFromContext(ctx); ok {
		h.Logger.Info("Tentativa de criação de produto por", map[string]interface{}{
			"user_id": claims.UserID,
			"role":    claims.Role,
		})
	}

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusCreated)
		return
	}

	created, err := h.Service.CreateProduct(ctx, p)
	h.handleServiceResponse(w, r, created, err, http.StatusCreated)
}

// GetProductByIDHandler lida com a requisição GET /v1/products/{id}.
// @Summary Busca um produto (com flags de estoque e validade)
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Router /products/{id} [get]
func (h *Handler) GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.GetProductByID(r.Context(), r.PathValue("id"))
	h.handleServiceResponse(w, r, product, err, http.StatusOK)
}

// ListProductsHandler lida com GET /v1/products?page=&limit=&name=.
// @Summary Lista produtos
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param page query int false "Página"
// @Param limit query int false "Itens por página (máx. 100)"
// @Param name query string false "Filtro por nome"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	// Valores inválidos viram 0 e o serviço aplica o padrão.
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filters := map[string]string{}
	if name := q.Get("name"); name != "" {
		filters["name"] = name
	}

	products, err := h.Service.GetProducts(r.Context(), page, limit, filters)
	if products == nil {
		products = []domain.Product{}
	}
	h.handleServiceResponse(w, r, products, err, http.StatusOK)
}
