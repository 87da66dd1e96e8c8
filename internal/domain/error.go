package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code           int    `json:"code" example:"400"`
	Category       string `json:"category" example:"INSUFFICIENT_STOCK"`
	Message        string `json:"message" example:"Estoque insuficiente para Água 500ml: solicitado 12, disponível 5."`
	AvailableStock *int   `json:"available_stock,omitempty" example:"5"`
	ProductName    string `json:"product_name,omitempty" example:"Água 500ml"`
}
