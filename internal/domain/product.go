package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa o item do catálogo. BaseStock é sempre contado em unidades base
// e é a única representação de estoque do sistema.
type Product struct {
	ID             string          `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	UnitBarcode    string          `json:"unit_barcode,omitempty" db:"unit_barcode"`
	PackBarcode    string          `json:"pack_barcode,omitempty" db:"pack_barcode"`
	BaseStock      int             `json:"base_stock" db:"base_stock"`
	PackSize       int             `json:"pack_size" db:"pack_size"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	PackPrice      decimal.Decimal `json:"pack_price" db:"pack_price"`
	PurchasePrice  decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty" db:"expiration_date"`
	Version        int             `json:"version" db:"version"` // Para Controle de Concorrência Otimista (OCC)
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`

	// Derivado na leitura, nunca persistido.
	StatusFlags []StatusFlag `json:"status_flags,omitempty" db:"-"`
}

// StatusFlag é uma marcação observada pelo feed de notificações.
type StatusFlag string

const (
	FlagLowStock   StatusFlag = "low_stock"
	FlagOutOfStock StatusFlag = "out_of_stock"
	FlagNearExpiry StatusFlag = "near_expiry"
	FlagExpired    StatusFlag = "expired"
)

// StatusPolicy define os limites usados para derivar as flags.
type StatusPolicy struct {
	LowStockThreshold int
	NearExpiryDays    int
}

// IsExpired informa se a validade já passou na data de now.
// O produto ainda pode ser vendido no próprio dia do vencimento.
func (p Product) IsExpired(now time.Time) bool {
	if p.ExpirationDate == nil {
		return false
	}
	return Day(now).After(Day(*p.ExpirationDate))
}

// EffectivePackSize devolve PackSize, nunca menor que 1.
func (p Product) EffectivePackSize() int {
	if p.PackSize < 1 {
		return 1
	}
	return p.PackSize
}

// ListPrice é o preço de tabela para a unidade escolhida, sem promoção.
func (p Product) ListPrice(pack bool) decimal.Decimal {
	if pack {
		return p.PackPrice
	}
	return p.UnitPrice
}

// DeriveStatusFlags calcula as flags a partir de BaseStock e ExpirationDate.
func (p Product) DeriveStatusFlags(now time.Time, policy StatusPolicy) []StatusFlag {
	var flags []StatusFlag
	switch {
	case p.BaseStock <= 0:
		flags = append(flags, FlagOutOfStock)
	case p.BaseStock <= policy.LowStockThreshold:
		flags = append(flags, FlagLowStock)
	}
	if p.ExpirationDate != nil {
		today := Day(now)
		exp := Day(*p.ExpirationDate)
		switch {
		case today.After(exp):
			flags = append(flags, FlagExpired)
		case !exp.After(today.AddDate(0, 0, policy.NearExpiryDays)):
			flags = append(flags, FlagNearExpiry)
		}
	}
	return flags
}

// ProductFilter define os parâmetros de busca e paginação.
type ProductFilter struct {
	Page  int
	Limit int
	Name  string
}

// Day trunca t para a data de calendário (UTC).
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
