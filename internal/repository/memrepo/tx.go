package memrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
)

// memTx implementa domain.CartTx e domain.ReceivingTx. Leituras consultam primeiro
// as escritas pendentes do próprio tx.
type memTx struct {
	s *Store

	products     map[string]domain.Product
	lines        map[string]domain.CartLine
	deletedLines map[string]bool
	orders       map[string]domain.PurchaseOrder
}

var (
	_ domain.CartTx      = (*memTx)(nil)
	_ domain.ReceivingTx = (*memTx)(nil)
)

func newMemTx(s *Store) *memTx {
	return &memTx{
		s:            s,
		products:     make(map[string]domain.Product),
		lines:        make(map[string]domain.CartLine),
		deletedLines: make(map[string]bool),
		orders:       make(map[string]domain.PurchaseOrder),
	}
}

func (t *memTx) commit() {
	for id, p := range t.products {
		t.s.products[id] = p
	}
	for id := range t.deletedLines {
		delete(t.s.lines, id)
	}
	for id, l := range t.lines {
		t.s.lines[id] = l
	}
	for id, o := range t.orders {
		t.s.orders[id] = o
	}
}

func (t *memTx) product(id string) (domain.Product, bool) {
	if p, ok := t.products[id]; ok {
		return p, true
	}
	p, ok := t.s.products[id]
	return p, ok
}

// visibleLines devolve as linhas como o tx as enxerga.
func (t *memTx) visibleLines() map[string]domain.CartLine {
	out := make(map[string]domain.CartLine, len(t.s.lines)+len(t.lines))
	for id, l := range t.s.lines {
		if !t.deletedLines[id] {
			out[id] = l
		}
	}
	for id, l := range t.lines {
		out[id] = l
	}
	return out
}

func (t *memTx) LockProduct(_ context.Context, productID string) (domain.Product, error) {
	p, ok := t.product(productID)
	if !ok {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe.", productID))
	}
	return p, nil
}

func (t *memTx) LineByID(_ context.Context, lineID string) (domain.CartLine, error) {
	l, ok := t.visibleLines()[lineID]
	if !ok {
		return domain.CartLine{}, apperror.NewNotFoundError(fmt.Sprintf("Item de carrinho %s não existe.", lineID))
	}
	return l, nil
}

func (t *memTx) LineByUserProduct(_ context.Context, userID, productID string) (domain.CartLine, bool, error) {
	for _, l := range t.visibleLines() {
		if l.UserID == userID && l.ProductID == productID {
			return l, true, nil
		}
	}
	return domain.CartLine{}, false, nil
}

func (t *memTx) DemandExcluding(_ context.Context, productID, excludeLineID string) (int, error) {
	total := 0
	for id, l := range t.visibleLines() {
		if l.ProductID == productID && id != excludeLineID {
			total += l.BaseUnits
		}
	}
	return total, nil
}

func (t *memTx) SaveLine(_ context.Context, line domain.CartLine) (domain.CartLine, error) {
	now := t.s.now().UTC()
	if line.ID == "" {
		line.ID = uuid.New().String()
		line.CreatedAt = now
	}
	line.UpdatedAt = now
	delete(t.deletedLines, line.ID)
	t.lines[line.ID] = line
	return line, nil
}

func (t *memTx) DeleteLine(_ context.Context, lineID string) error {
	if _, ok := t.visibleLines()[lineID]; !ok {
		return apperror.NewNotFoundError(fmt.Sprintf("Item de carrinho %s não existe.", lineID))
	}
	delete(t.lines, lineID)
	t.deletedLines[lineID] = true
	return nil
}

func (t *memTx) LockOrder(_ context.Context, orderID string) (domain.PurchaseOrder, error) {
	if o, ok := t.orders[orderID]; ok {
		return o, nil
	}
	o, ok := t.s.orders[orderID]
	if !ok {
		return domain.PurchaseOrder{}, apperror.NewNotFoundError(fmt.Sprintf("Pedido de compra %s não existe.", orderID))
	}
	return copyOrder(o), nil
}

// IncrementStock aplica a mesma checagem de versão do UPDATE ... WHERE version = $n.
func (t *memTx) IncrementStock(_ context.Context, product domain.Product, delta int) (domain.StockChange, error) {
	current, ok := t.product(product.ID)
	if !ok {
		return domain.StockChange{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe.", product.ID))
	}
	if current.Version != product.Version {
		return domain.StockChange{}, apperror.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}
	old := current.BaseStock
	current.BaseStock += delta
	current.Version++
	current.UpdatedAt = t.s.now().UTC()
	t.products[current.ID] = current
	return domain.StockChange{ProductID: current.ID, OldQuantity: old, NewQuantity: current.BaseStock, Version: current.Version}, nil
}

func (t *memTx) MarkReceived(ctx context.Context, orderID string, at time.Time) error {
	o, err := t.LockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	at = at.UTC()
	o.Status = domain.PurchaseOrderCompleted
	o.ReceivedAt = &at
	t.orders[orderID] = o
	return nil
}

func copyOrder(o domain.PurchaseOrder) domain.PurchaseOrder {
	o.Lines = append([]domain.PurchaseOrderLine(nil), o.Lines...)
	return o
}
