package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion é um preço promocional por unidade, válido num intervalo de datas inclusivo.
type Promotion struct {
	ID              string          `json:"id" db:"id"`
	ProductID       string          `json:"product_id" db:"product_id"`
	DiscountedPrice decimal.Decimal `json:"discounted_price" db:"discounted_price"`
	ValidityStart   time.Time       `json:"validity_start" db:"validity_start"`
	ValidityEnd     time.Time       `json:"validity_end" db:"validity_end"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// ActiveOn informa se a data de on está dentro da validade.
func (p Promotion) ActiveOn(on time.Time) bool {
	d := Day(on)
	return !d.Before(Day(p.ValidityStart)) && !d.After(Day(p.ValidityEnd))
}

// PickActive escolhe, entre candidatas, a única promoção tratada como ativa em on:
// menor preço; em empate, a de início mais recente.
func PickActive(candidates []Promotion, on time.Time) (Promotion, bool) {
	var best Promotion
	found := false
	for _, c := range candidates {
		if !c.ActiveOn(on) {
			continue
		}
		if !found {
			best, found = c, true
			continue
		}
		cmp := c.DiscountedPrice.Cmp(best.DiscountedPrice)
		if cmp < 0 || (cmp == 0 && c.ValidityStart.After(best.ValidityStart)) {
			best = c
		}
	}
	return best, found
}

// PromotionRequest é o payload de criação de promoção.
type PromotionRequest struct {
	ProductID       string          `json:"product_id"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	ValidityStart   time.Time       `json:"validity_start"`
	ValidityEnd     time.Time       `json:"validity_end"`
}
