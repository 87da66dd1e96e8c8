package domain

import "math"

// Quantity é o par {contagem, unidade}. A contagem só tem significado junto com Pack:
// Pack=false conta unidades base, Pack=true conta pacotes de packSize unidades.
// BaseUnits é o único ponto do sistema que converte para unidades base.
type Quantity struct {
	Count int  `json:"quantity"`
	Pack  bool `json:"pack"`
}

// Units cria uma quantidade em unidades base.
func Units(n int) Quantity { return Quantity{Count: n} }

// Packs cria uma quantidade em pacotes.
func Packs(n int) Quantity { return Quantity{Count: n, Pack: true} }

// BaseUnits converte a quantidade para unidades base.
// packSize < 1 é tratado como 1. Chame Fits antes: o produto não é verificado.
func (q Quantity) BaseUnits(packSize int) int {
	if !q.Pack {
		return q.Count
	}
	return q.Count * normalizePackSize(packSize)
}

// Fits informa se a contagem convertida cabe em int.
func (q Quantity) Fits(packSize int) bool {
	if !q.Pack || q.Count <= 0 {
		return true
	}
	return q.Count <= math.MaxInt/normalizePackSize(packSize)
}

// WithCount devolve a mesma unidade com outra contagem.
func (q Quantity) WithCount(n int) Quantity {
	return Quantity{Count: n, Pack: q.Pack}
}

// Toggled devolve a quantidade com a unidade trocada e a mesma contagem numérica.
func (q Quantity) Toggled() Quantity {
	return Quantity{Count: q.Count, Pack: !q.Pack}
}

func normalizePackSize(packSize int) int {
	if packSize < 1 {
		return 1
	}
	return packSize
}
