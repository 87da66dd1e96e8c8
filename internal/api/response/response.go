// Package response padroniza as respostas JSON de sucesso e de erro da API.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
)

// JSON escreve data com o status informado.
func JSON(w http.ResponseWriter, log logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil && log != nil {
		log.Error("Falha ao codificar JSON de resposta", err)
	}
}

// Error traduz err (AppError ou não) para o corpo padronizado domain.ErrorResponse.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	if log != nil {
		if status >= http.StatusInternalServerError {
			log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
		} else {
			log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category),
				map[string]interface{}{"path": r.URL.Path, "method": r.Method})
		}
	}

	body := domain.ErrorResponse{Code: status, Category: category, Message: message}
	if details := apperror.DetailsOf(err); details != nil {
		if avail, ok := details["available_stock"].(int); ok {
			body.AvailableStock = &avail
		}
		if name, ok := details["product_name"].(string); ok {
			body.ProductName = name
		}
	}
	JSON(w, log, status, body)
}
