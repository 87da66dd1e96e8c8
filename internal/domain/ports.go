package domain

import (
	"context"
	"time"
)

// --- Interfaces de Contrato entre Serviço e Repositório ---
//
// As operações de escrita que tocam BaseStock rodam dentro de uma unidade
// transacional (InTx). A implementação garante que, entre LockProduct e o fim da
// transação, nenhuma outra escrita no mesmo produto é aplicada.

// CartTx é o escopo transacional de uma mutação de carrinho.
type CartTx interface {
	// LockProduct lê o produto bloqueando-o até o fim da transação (NotFound se ausente).
	LockProduct(ctx context.Context, productID string) (Product, error)
	// LineByID relê a linha dentro da transação (NotFound se ausente).
	LineByID(ctx context.Context, lineID string) (CartLine, error)
	// LineByUserProduct devolve a linha do usuário para o produto, se existir.
	LineByUserProduct(ctx context.Context, userID, productID string) (CartLine, bool, error)
	// DemandExcluding soma BaseUnits de todas as linhas do produto, exceto excludeLineID.
	DemandExcluding(ctx context.Context, productID, excludeLineID string) (int, error)
	// SaveLine insere (ID vazio) ou atualiza a linha.
	SaveLine(ctx context.Context, line CartLine) (CartLine, error)
	// DeleteLine remove a linha.
	DeleteLine(ctx context.Context, lineID string) error
}

// ReceivingTx é o escopo transacional do recebimento de um pedido de compra.
type ReceivingTx interface {
	// LockOrder lê o pedido com as linhas, bloqueando-o (NotFound se ausente).
	LockOrder(ctx context.Context, orderID string) (PurchaseOrder, error)
	// LockProduct lê o produto bloqueando-o (NotFound se ausente).
	LockProduct(ctx context.Context, productID string) (Product, error)
	// IncrementStock soma delta ao estoque com checagem de versão (Conflict se a versão mudou).
	IncrementStock(ctx context.Context, product Product, delta int) (StockChange, error)
	// MarkReceived leva o pedido para completed.
	MarkReceived(ctx context.Context, orderID string, at time.Time) error
}

// PromotionLookup devolve, por produto, a promoção ativa na data de on.
// Produtos sem promoção ficam fora do mapa.
type PromotionLookup interface {
	ActiveFor(ctx context.Context, productIDs []string, on time.Time) (map[string]Promotion, error)
}
