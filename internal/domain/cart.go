package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine é o estado pendente de um produto no carrinho de um usuário.
// BaseUnits é derivado de Quantity/Pack no momento de cada mutação e persistido,
// para que ninguém recalcule quantity*packSize por conta própria.
type CartLine struct {
	ID                string          `json:"id" db:"id"`
	UserID            string          `json:"user_id" db:"user_id"`
	ProductID         string          `json:"product_id" db:"product_id"`
	Quantity          int             `json:"quantity" db:"quantity"`
	Pack              bool            `json:"pack" db:"pack"`
	BaseUnits         int             `json:"base_units" db:"base_units"`
	UnitPriceSnapshot decimal.Decimal `json:"unit_price_snapshot" db:"unit_price_snapshot"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Qty devolve a quantidade da linha como valor.
func (l CartLine) Qty() Quantity {
	return Quantity{Count: l.Quantity, Pack: l.Pack}
}

// WithQty aplica q à linha, recalculando BaseUnits com o packSize do produto.
func (l CartLine) WithQty(q Quantity, packSize int) CartLine {
	l.Quantity = q.Count
	l.Pack = q.Pack
	l.BaseUnits = q.BaseUnits(packSize)
	return l
}

// CartLineView é a linha como o caixa a vê: o preço acordado na última mutação,
// o preço vigente hoje e os totais calculados com o preço vigente.
type CartLineView struct {
	CartLine
	ProductName     string          `json:"product_name"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	ListPrice       decimal.Decimal `json:"list_price"`
	PromotionActive bool            `json:"promotion_active"`
	PriceChanged    bool            `json:"price_changed"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// CartView agrega as linhas e os totais do carrinho.
type CartView struct {
	UserID   string          `json:"user_id"`
	Lines    []CartLineView  `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Discount decimal.Decimal `json:"discount"`
}

// CartLineUpdate é o payload do PUT de uma linha: quantidade e/ou unidade.
type CartLineUpdate struct {
	Quantity *int  `json:"quantity,omitempty"`
	Pack     *bool `json:"pack,omitempty"`
}
