package domain

import "time"

// PurchaseOrderStatus é o estado do pedido de compra: pending -> completed (terminal).
type PurchaseOrderStatus string

const (
	PurchaseOrderPending   PurchaseOrderStatus = "pending"
	PurchaseOrderCompleted PurchaseOrderStatus = "completed"
)

// PurchaseOrder é o pedido de compra que repõe estoque quando recebido.
type PurchaseOrder struct {
	ID          string              `json:"id" db:"id"`
	OrderNumber string              `json:"order_number" db:"order_number"`
	Status      PurchaseOrderStatus `json:"status" db:"status"`
	ReceivedAt  *time.Time          `json:"received_at,omitempty" db:"received_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	Lines       []PurchaseOrderLine `json:"lines" db:"-"`
}

// PurchaseOrderLine é imutável depois que o pedido é criado.
// PackSize é o tamanho do pacote no momento do pedido (0 = desconhecido).
type PurchaseOrderLine struct {
	ID              string `json:"id" db:"id"`
	PurchaseOrderID string `json:"purchase_order_id" db:"purchase_order_id"`
	ProductID       string `json:"product_id" db:"product_id"`
	Quantity        int    `json:"quantity" db:"quantity"`
	Pack            bool   `json:"pack" db:"pack"`
	PackSize        int    `json:"pack_size" db:"pack_size"`
}

// Qty devolve a quantidade da linha como valor.
func (l PurchaseOrderLine) Qty() Quantity {
	return Quantity{Count: l.Quantity, Pack: l.Pack}
}

// ReceivedBaseUnits converte a linha em unidades base. O packSize do pedido tem
// precedência sobre o atual do produto.
func (l PurchaseOrderLine) ReceivedBaseUnits(currentPackSize int) int {
	packSize := l.PackSize
	if packSize <= 0 {
		packSize = currentPackSize
	}
	return l.Qty().BaseUnits(packSize)
}

// PurchaseOrderRequest é o payload de criação do pedido de compra.
type PurchaseOrderRequest struct {
	Lines []PurchaseOrderLine `json:"lines"`
}

// StockChange é o resultado de um incremento de estoque.
type StockChange struct {
	ProductID   string `json:"product_id"`
	OldQuantity int    `json:"old_quantity"`
	NewQuantity int    `json:"new_quantity"`
	Version     int    `json:"version"`
}

// ReceivedProduct é o desfecho de sucesso de uma linha recebida.
type ReceivedProduct struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	AddedQuantity int    `json:"added_quantity"`
	OldQuantity   int    `json:"old_quantity"`
	NewQuantity   int    `json:"new_quantity"`
}

// SkippedProduct é o desfecho de uma linha ignorada, sempre com motivo.
type SkippedProduct struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// Motivos de linha ignorada.
const (
	SkipReasonProductMissing      = "product no longer exists"
	SkipReasonNonPositiveQuantity = "non-positive receiving quantity"
)

// ReceivingReport é o resultado agregado de ReceiveOrder.
type ReceivingReport struct {
	Message         string            `json:"message"`
	OrderNumber     string            `json:"order_number"`
	AddedProducts   []ReceivedProduct `json:"added_products"`
	SkippedProducts []SkippedProduct  `json:"skipped_products"`
}
