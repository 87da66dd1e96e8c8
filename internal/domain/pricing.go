package domain

import "github.com/shopspring/decimal"

// PricedLine junta o que é preciso para precificar uma linha: a linha, o produto e a
// promoção ativa (se houver).
type PricedLine struct {
	Line      CartLine
	Product   Product
	Promotion *Promotion
}

// ComputeLinePrice devolve o preço unitário autoritativo da linha.
// Com promoção ativa, o preço promocional vale independentemente de pack: a troca para
// pacote é recusada enquanto há promoção, então não há ambiguidade.
func ComputeLinePrice(product Product, pack bool, promo *Promotion) decimal.Decimal {
	if promo != nil {
		return promo.DiscountedPrice
	}
	return product.ListPrice(pack)
}

// ComputeLineTotal = preço * quantidade (na unidade da linha).
func ComputeLineTotal(pl PricedLine) decimal.Decimal {
	price := ComputeLinePrice(pl.Product, pl.Line.Pack, pl.Promotion)
	return price.Mul(decimal.NewFromInt(int64(pl.Line.Quantity)))
}

// ComputeCartTotal soma os totais de linha.
func ComputeCartTotal(lines []PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, pl := range lines {
		total = total.Add(ComputeLineTotal(pl))
	}
	return total
}

// ComputeDiscount soma (preço de tabela - preço efetivo) * quantidade nas linhas com promoção.
func ComputeDiscount(lines []PricedLine) decimal.Decimal {
	discount := decimal.Zero
	for _, pl := range lines {
		if pl.Promotion == nil {
			continue
		}
		list := pl.Product.ListPrice(pl.Line.Pack)
		effective := ComputeLinePrice(pl.Product, pl.Line.Pack, pl.Promotion)
		discount = discount.Add(list.Sub(effective).Mul(decimal.NewFromInt(int64(pl.Line.Quantity))))
	}
	return discount
}
