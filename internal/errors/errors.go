package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do GoPOS.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND", "OUT_OF_STOCK")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// Detailer é implementado pelos erros que carregam contexto extra para a resposta
// (estoque disponível, nome do produto).
type Detailer interface {
	Details() map[string]interface{}
}

// Categorias expostas ao cliente.
const (
	CategoryValidation            = "VALIDATION_ERROR"
	CategoryInvalidQuantity       = "INVALID_QUANTITY"
	CategoryNotFound              = "NOT_FOUND"
	CategoryConflict              = "CONFLICT"
	CategoryUnauthorized          = "UNAUTHORIZED"
	CategoryExpired               = "EXPIRED"
	CategoryOutOfStock            = "OUT_OF_STOCK"
	CategoryInsufficientStock     = "INSUFFICIENT_STOCK"
	CategoryPromotionPackConflict = "PROMOTION_PACK_CONFLICT"
	CategoryInternal              = "INTERNAL_ERROR"
)

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return CategoryValidation }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// InvalidQuantityError representa uma quantidade não positiva ou não inteira.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("Quantidade inválida: %d. A quantidade deve ser um inteiro positivo.", e.Quantity)
}
func (e *InvalidQuantityError) Category() string { return CategoryInvalidQuantity }
func (e *InvalidQuantityError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *InvalidQuantityError) Unwrap() error    { return nil }

// NewInvalidQuantityError cria um erro de quantidade inválida.
func NewInvalidQuantityError(qty int) AppError {
	return &InvalidQuantityError{Quantity: qty}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return CategoryNotFound }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito na regra de negócio (e.g., OCC, recurso duplicado,
// pedido de compra já recebido).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return CategoryConflict }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// UnauthorizedError representa falha de autenticação/autorização.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return CategoryUnauthorized }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autorização.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ExpiredError indica que o produto passou da data de validade e não pode ser vendido.
type ExpiredError struct {
	ProductID   string
	ProductName string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("Produto vencido: %s não pode mais ser vendido.", e.ProductName)
}
func (e *ExpiredError) Category() string { return CategoryExpired }
func (e *ExpiredError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *ExpiredError) Unwrap() error    { return nil }
func (e *ExpiredError) Details() map[string]interface{} {
	return map[string]interface{}{"product_id": e.ProductID, "product_name": e.ProductName}
}

// NewExpiredError cria um erro de produto vencido.
func NewExpiredError(productID, productName string) AppError {
	return &ExpiredError{ProductID: productID, ProductName: productName}
}

// StockError cobre OUT_OF_STOCK (estoque zerado) e INSUFFICIENT_STOCK (demanda acima do disponível).
// Available é o que ainda pode ser colocado no carrinho, em unidades base.
type StockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
	OutOfStock  bool
}

func (e *StockError) Error() string {
	if e.OutOfStock {
		return fmt.Sprintf("Produto sem estoque: %s.", e.ProductName)
	}
	return fmt.Sprintf("Estoque insuficiente para %s: solicitado %d, disponível %d.", e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Category() string {
	if e.OutOfStock {
		return CategoryOutOfStock
	}
	return CategoryInsufficientStock
}
func (e *StockError) HTTPStatus() int { return http.StatusBadRequest }
func (e *StockError) Unwrap() error   { return nil }
func (e *StockError) Details() map[string]interface{} {
	return map[string]interface{}{
		"product_id":      e.ProductID,
		"product_name":    e.ProductName,
		"available_stock": e.Available,
	}
}

// NewOutOfStockError cria um erro de produto sem estoque.
func NewOutOfStockError(productID, productName string) AppError {
	return &StockError{ProductID: productID, ProductName: productName, OutOfStock: true}
}

// NewInsufficientStockError cria um erro de estoque insuficiente.
func NewInsufficientStockError(productID, productName string, requested, available int) AppError {
	if available < 0 {
		available = 0
	}
	return &StockError{ProductID: productID, ProductName: productName, Requested: requested, Available: available}
}

// PromotionPackConflictError: preço promocional é definido por unidade, então a linha
// não pode entrar em modo pacote enquanto houver promoção ativa.
type PromotionPackConflictError struct {
	ProductID   string
	ProductName string
}

func (e *PromotionPackConflictError) Error() string {
	return fmt.Sprintf("Produto %s está em promoção: a venda por pacote não está disponível.", e.ProductName)
}
func (e *PromotionPackConflictError) Category() string { return CategoryPromotionPackConflict }
func (e *PromotionPackConflictError) HTTPStatus() int  { return http.StatusConflict }
func (e *PromotionPackConflictError) Unwrap() error    { return nil }
func (e *PromotionPackConflictError) Details() map[string]interface{} {
	return map[string]interface{}{"product_id": e.ProductID, "product_name": e.ProductName}
}

// NewPromotionPackConflictError cria o erro de conflito entre promoção e pacote.
func NewPromotionPackConflictError(productID, productName string) AppError {
	return &PromotionPackConflictError{ProductID: productID, ProductName: productName}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return CategoryInternal }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helpers ---

// AsAppError procura um AppError na cadeia de erros.
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound informa se algum erro da cadeia é um NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := AsAppError(err); ok {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			// Não vaza a causa raiz (erro SQL) para o cliente.
			return appErr.HTTPStatus(), appErr.Category(), "Ocorreu um erro inesperado."
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}

// DetailsOf devolve os detalhes extras do erro, se houver.
func DetailsOf(err error) map[string]interface{} {
	var d Detailer
	if stderrors.As(err, &d) {
		return d.Details()
	}
	return nil
}
