package purchaseorderrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gopos/internal/domain"
	"gopos/internal/errors"
	"gopos/internal/pkg/logger"
	"gopos/internal/repository/productrepo"
)

const orderColumns = `id, order_number, status, received_at, created_at`
const lineColumns = `id, purchase_order_id, product_id, quantity, pack, pack_size`

// PurchaseOrderRepository persiste pedidos de compra e aplica o recebimento ao estoque.
type PurchaseOrderRepository struct {
	DB        *sqlx.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewPurchaseOrderRepository cria e retorna uma nova instância do Repositório de Pedidos de Compra.
func NewPurchaseOrderRepository(db *sqlx.DB, dbTimeout time.Duration, logger logger.Logger) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// InTx abre uma transação, executa fn e faz commit se fn não falhar.
func (r *PurchaseOrderRepository) InTx(ctx context.Context, fn func(tx domain.ReceivingTx) error) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTxx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de recebimento.", err)
		return errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	if err := fn(&pgReceivingTx{tx: tx, logger: r.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de recebimento.", err)
		return errors.NewDBError("Falha ao commitar transação", err)
	}
	return nil
}

// Create grava o pedido e as linhas numa transação.
func (r *PurchaseOrderRepository) Create(ctx context.Context, order domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTxx(ctxTimeout, nil)
	if err != nil {
		return domain.PurchaseOrder{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctxTimeout, `
		INSERT INTO purchase_orders (`+orderColumns+`)
		VALUES (:id, :order_number, :status, :received_at, :created_at)`, order)
	if err != nil {
		r.logger.Error("Falha ao inserir pedido de compra.", err)
		return domain.PurchaseOrder{}, errors.NewDBError("Falha ao inserir pedido de compra", err)
	}

	for _, line := range order.Lines {
		_, err = tx.NamedExecContext(ctxTimeout, `
			INSERT INTO purchase_order_lines (`+lineColumns+`)
			VALUES (:id, :purchase_order_id, :product_id, :quantity, :pack, :pack_size)`, line)
		if err != nil {
			r.logger.Error("Falha ao inserir linha de pedido de compra.", err)
			return domain.PurchaseOrder{}, errors.NewDBError("Falha ao inserir linha de pedido de compra", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.PurchaseOrder{}, errors.NewDBError("Falha ao commitar transação", err)
	}
	return order, nil
}

// FindByID busca o pedido com as linhas.
func (r *PurchaseOrderRepository) FindByID(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()
	return loadOrder(ctxTimeout, r.DB, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id)
}

// pgReceivingTx implementa domain.ReceivingTx sobre uma transação sqlx.
type pgReceivingTx struct {
	tx     *sqlx.Tx
	logger logger.Logger
}

var _ domain.ReceivingTx = (*pgReceivingTx)(nil)

func (t *pgReceivingTx) LockOrder(ctx context.Context, orderID string) (domain.PurchaseOrder, error) {
	return loadOrder(ctx, t.tx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, orderID)
}

func (t *pgReceivingTx) LockProduct(ctx context.Context, productID string) (domain.Product, error) {
	return productrepo.LockForUpdate(ctx, t.tx, productID)
}

// IncrementStock aplica o incremento com controle de concorrência otimista (OCC).
func (t *pgReceivingTx) IncrementStock(ctx context.Context, product domain.Product, delta int) (domain.StockChange, error) {
	newQuantity := product.BaseStock + delta

	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET base_stock = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5`,
		newQuantity,
		product.Version+1, // Incrementa a versão
		time.Now().UTC(),
		product.ID,
		product.Version, // Checa a versão antiga para OCC
	)
	if err != nil {
		t.logger.Error("Falha ao atualizar estoque do produto.", err)
		return domain.StockChange{}, errors.NewDBError("Falha ao atualizar estoque", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.StockChange{}, errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		t.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão do registro desatualizada.", map[string]interface{}{
			"product_id":       product.ID,
			"expected_version": product.Version,
		})
		return domain.StockChange{}, errors.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}

	t.logger.Debug("Estoque incrementado.", map[string]interface{}{
		"product_id":   product.ID,
		"old_quantity": product.BaseStock,
		"new_quantity": newQuantity,
		"new_version":  product.Version + 1,
	})
	return domain.StockChange{
		ProductID:   product.ID,
		OldQuantity: product.BaseStock,
		NewQuantity: newQuantity,
		Version:     product.Version + 1,
	}, nil
}

func (t *pgReceivingTx) MarkReceived(ctx context.Context, orderID string, at time.Time) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE purchase_orders SET status = $1, received_at = $2 WHERE id = $3`,
		domain.PurchaseOrderCompleted, at.UTC(), orderID)
	if err != nil {
		return errors.NewDBError("Falha ao concluir pedido de compra", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Pedido de compra %s não existe.", orderID))
	}
	return nil
}

func loadOrder(ctx context.Context, q sqlx.QueryerContext, query, id string) (domain.PurchaseOrder, error) {
	var order domain.PurchaseOrder
	err := sqlx.GetContext(ctx, q, &order, query, id)
	if err == sql.ErrNoRows {
		return domain.PurchaseOrder{}, errors.NewNotFoundError(fmt.Sprintf("Pedido de compra %s não existe.", id))
	}
	if err != nil {
		return domain.PurchaseOrder{}, errors.NewDBError("Falha ao buscar pedido de compra", err)
	}

	order.Lines = []domain.PurchaseOrderLine{}
	err = sqlx.SelectContext(ctx, q, &order.Lines,
		`SELECT `+lineColumns+` FROM purchase_order_lines WHERE purchase_order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return domain.PurchaseOrder{}, errors.NewDBError("Falha ao buscar linhas do pedido de compra", err)
	}
	return order, nil
}
