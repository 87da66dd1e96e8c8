package promotion

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"gopos/internal/api/response"
	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
)

// PromotionService define o contrato das promoções.
type PromotionService interface {
	CreatePromotion(ctx context.Context, req domain.PromotionRequest) (domain.Promotion, error)
	ActivePromotions(ctx context.Context, productIDs []string) (map[string]domain.Promotion, error)
}

// Handler agrupa os handlers de promoção.
type Handler struct {
	Service PromotionService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(svc PromotionService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// CreatePromotionHandler lida com POST /v1/promotions.
// @Summary Cria uma promoção por unidade
// @Tags promotions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param promotion body domain.PromotionRequest true "Promoção"
// @Success 201 {object} domain.Promotion
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Router /promotions [post]
func (h *Handler) CreatePromotionHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.PromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, h.Logger, apperror.NewValidationError("Payload JSON inválido."))
		return
	}
	promo, err := h.Service.CreatePromotion(r.Context(), req)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	response.JSON(w, h.Logger, http.StatusCreated, promo)
}

// ActivePromotionsHandler lida com GET /v1/promotions/active?product_id=a&product_id=b.
// Também aceita ids separados por vírgula.
// @Summary Promoções ativas hoje, por produto
// @Tags promotions
// @Produce json
// @Security BearerAuth
// @Param product_id query []string true "IDs dos produtos"
// @Success 200 {object} map[string]domain.Promotion
// @Failure 400 {object} domain.ErrorResponse
// @Router /promotions/active [get]
func (h *Handler) ActivePromotionsHandler(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["product_id"] {
		ids = append(ids, strings.Split(v, ",")...)
	}
	active, err := h.Service.ActivePromotions(r.Context(), ids)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}
	if active == nil {
		active = map[string]domain.Promotion{}
	}
	response.JSON(w, h.Logger, http.StatusOK, active)
}
