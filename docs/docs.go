// Package docs registra a especificação OpenAPI servida em /swagger/.
// Mantido no formato do `swag init`; regenerar a partir das anotações dos handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/register": {"post": {"tags": ["users"], "summary": "Registra um novo usuário", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/login": {"post": {"tags": ["users"], "summary": "Autentica e retorna um JWT", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/cart": {
            "get": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Mostra o carrinho", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Esvazia o carrinho", "responses": {"200": {"description": "OK"}}}
        },
        "/cart/items": {"post": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Adiciona uma unidade do produto", "responses": {"201": {"description": "Created"}, "400": {"description": "EXPIRED, OUT_OF_STOCK, INSUFFICIENT_STOCK"}, "404": {"description": "Not Found"}}}},
        "/cart/items/barcode": {"post": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Adiciona pelo código de barras", "responses": {"201": {"description": "Created"}, "409": {"description": "PROMOTION_PACK_CONFLICT"}}}},
        "/cart/items/{id}": {
            "put": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Troca quantidade e/ou unidade", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "204": {"description": "Linha removida"}, "400": {"description": "INVALID_QUANTITY, INSUFFICIENT_STOCK"}, "409": {"description": "PROMOTION_PACK_CONFLICT"}}},
            "delete": {"tags": ["cart"], "security": [{"BearerAuth": []}], "summary": "Remove a linha", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/products": {
            "get": {"tags": ["products"], "security": [{"BearerAuth": []}], "summary": "Lista produtos", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["products"], "security": [{"BearerAuth": []}], "summary": "Cadastra um produto", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/products/{id}": {"get": {"tags": ["products"], "security": [{"BearerAuth": []}], "summary": "Busca um produto", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/promotions": {"post": {"tags": ["promotions"], "security": [{"BearerAuth": []}], "summary": "Cria uma promoção", "responses": {"201": {"description": "Created"}}}},
        "/promotions/active": {"get": {"tags": ["promotions"], "security": [{"BearerAuth": []}], "summary": "Promoções ativas hoje", "parameters": [{"name": "product_id", "in": "query", "required": true, "type": "array", "items": {"type": "string"}}], "responses": {"200": {"description": "OK"}}}},
        "/purchase-orders": {"post": {"tags": ["purchase-orders"], "security": [{"BearerAuth": []}], "summary": "Cria um pedido de compra", "responses": {"201": {"description": "Created"}}}},
        "/purchase-orders/{id}": {"get": {"tags": ["purchase-orders"], "security": [{"BearerAuth": []}], "summary": "Busca um pedido de compra", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/purchase-orders/{id}/receive": {"post": {"tags": ["purchase-orders"], "security": [{"BearerAuth": []}], "summary": "Recebe o pedido e repõe o estoque", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Pedido já recebido"}}}}
    }
}`

// SwaggerInfo guarda as informações exportadas da API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "GoPOS API",
	Description:      "Carrinho do caixa, catálogo, promoções e recebimento de pedidos de compra.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
