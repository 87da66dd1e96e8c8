package cart

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"gopos/internal/api/response"
	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
	"gopos/internal/pkg/middleware"
)

// CartService define o contrato que o Handler espera do motor do carrinho.
type CartService interface {
	AddItem(ctx context.Context, productID, userID string) (domain.CartLine, error)
	AddItemByBarcode(ctx context.Context, code, userID string) (domain.CartLine, error)
	UpdateLine(ctx context.Context, lineID string, upd domain.CartLineUpdate) (domain.CartLine, bool, error)
	RemoveItem(ctx context.Context, lineID string) error
	ClearAll(ctx context.Context, userID string) (int, error)
	Line(ctx context.Context, lineID string) (domain.CartLine, error)
	ViewCart(ctx context.Context, userID string) (domain.CartView, error)
}

// AddItemRequest é o payload de POST /v1/cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

// BarcodeRequest é o payload de POST /v1/cart/items/barcode.
type BarcodeRequest struct {
	Barcode string `json:"barcode"`
}

// updateLineRequest aceita quantity como número para poder recusar frações.
type updateLineRequest struct {
	Quantity *float64 `json:"quantity"`
	Pack     *bool    `json:"pack"`
}

// Handler agrupa os handlers do carrinho.
type Handler struct {
	Service CartService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc CartService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	response.JSON(w, h.Logger, successStatus, data)
}

// userID extrai o dono do carrinho das claims do token.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		response.Error(w, r, h.Logger, apperror.NewUnauthorizedError("Autorização necessária."))
		return "", false
	}
	return claims.UserID, true
}

// ownLine carrega a linha e garante que pertence ao usuário. Linha de outro
// carrinho responde 404, como se não existisse.
func (h *Handler) ownLine(w http.ResponseWriter, r *http.Request, userID string) (domain.CartLine, bool) {
	line, err := h.Service.Line(r.Context(), r.PathValue("id"))
	if err == nil && line.UserID != userID {
		err = apperror.NewNotFoundError("Linha do carrinho não encontrada.")
	}
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return domain.CartLine{}, false
	}
	return line, true
}

// AddItemHandler lida com POST /v1/cart/items.
// @Summary Adiciona uma unidade do produto ao carrinho
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body AddItemRequest true "Produto"
// @Success 201 {object} domain.CartLine
// @Failure 400 {object} domain.ErrorResponse "EXPIRED, OUT_OF_STOCK, INSUFFICIENT_STOCK"
// @Failure 404 {object} domain.ErrorResponse "Produto não encontrado"
// @Router /cart/items [post]
func (h *Handler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}
	line, err := h.Service.AddItem(r.Context(), req.ProductID, userID)
	h.handleServiceResponse(w, r, line, err, http.StatusCreated)
}

// AddByBarcodeHandler lida com POST /v1/cart/items/barcode.
// @Summary Adiciona pelo código de barras (unidade ou pacote)
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body BarcodeRequest true "Código de barras"
// @Success 201 {object} domain.CartLine
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "PROMOTION_PACK_CONFLICT"
// @Router /cart/items/barcode [post]
func (h *Handler) AddByBarcodeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req BarcodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusCreated)
		return
	}
	line, err := h.Service.AddItemByBarcode(r.Context(), req.Barcode, userID)
	h.handleServiceResponse(w, r, line, err, http.StatusCreated)
}

// UpdateLineHandler lida com PUT /v1/cart/items/{id}.
// @Summary Troca a quantidade e/ou a unidade (pacote) da linha
// @Description quantity <= 0 remove a linha e responde 204.
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da linha"
// @Param update body domain.CartLineUpdate true "Quantidade e/ou pack"
// @Success 200 {object} domain.CartLine
// @Success 204 "Linha removida"
// @Failure 400 {object} domain.ErrorResponse "INVALID_QUANTITY, INSUFFICIENT_STOCK"
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "PROMOTION_PACK_CONFLICT"
// @Router /cart/items/{id} [put]
func (h *Handler) UpdateLineHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload JSON inválido."), http.StatusOK)
		return
	}
	if req.Quantity == nil && req.Pack == nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Informe quantity e/ou pack."), http.StatusOK)
		return
	}

	var upd domain.CartLineUpdate
	upd.Pack = req.Pack
	if req.Quantity != nil {
		q := *req.Quantity
		if q != math.Trunc(q) || math.Abs(q) > math.MaxInt32 {
			h.handleServiceResponse(w, r, nil, apperror.NewInvalidQuantityError(int(q)), http.StatusOK)
			return
		}
		n := int(q)
		upd.Quantity = &n
	}

	line, ok := h.ownLine(w, r, userID)
	if !ok {
		return
	}

	updated, removed, err := h.Service.UpdateLine(r.Context(), line.ID, upd)
	if err == nil && removed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.handleServiceResponse(w, r, updated, err, http.StatusOK)
}

// RemoveItemHandler lida com DELETE /v1/cart/items/{id}.
// @Summary Remove a linha do carrinho
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da linha"
// @Success 200 {object} map[string]string
// @Failure 404 {object} domain.ErrorResponse
// @Router /cart/items/{id} [delete]
func (h *Handler) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	line, ok := h.ownLine(w, r, userID)
	if !ok {
		return
	}
	err := h.Service.RemoveItem(r.Context(), line.ID)
	h.handleServiceResponse(w, r, map[string]string{"removed": line.ID}, err, http.StatusOK)
}

// ClearCartHandler lida com DELETE /v1/cart.
// @Summary Esvazia o carrinho do usuário
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Router /cart [delete]
func (h *Handler) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	n, err := h.Service.ClearAll(r.Context(), userID)
	h.handleServiceResponse(w, r, map[string]int{"removed": n}, err, http.StatusOK)
}

// ViewCartHandler lida com GET /v1/cart.
// @Summary Mostra o carrinho com os preços vigentes hoje
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.CartView
// @Router /cart [get]
func (h *Handler) ViewCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	view, err := h.Service.ViewCart(r.Context(), userID)
	h.handleServiceResponse(w, r, view, err, http.StatusOK)
}
