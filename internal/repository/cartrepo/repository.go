package cartrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gopos/internal/domain"
	"gopos/internal/errors"
	"gopos/internal/pkg/logger"
	"gopos/internal/repository/productrepo"
)

const lineColumns = `id, user_id, product_id, quantity, pack, base_units, unit_price_snapshot, created_at, updated_at`

// CartRepository persiste as linhas de carrinho no PostgreSQL.
type CartRepository struct {
	DB        *sqlx.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewCartRepository cria e retorna uma nova instância do Repositório de Carrinho.
func NewCartRepository(db *sqlx.DB, dbTimeout time.Duration, logger logger.Logger) *CartRepository {
	return &CartRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

// InTx abre uma transação, executa fn e faz commit se fn não falhar. Qualquer erro
// (inclusive recusa de negócio) faz rollback.
func (r *CartRepository) InTx(ctx context.Context, fn func(tx domain.CartTx) error) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTxx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de carrinho.", err)
		return errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // sem efeito depois do Commit

	if err := fn(&pgCartTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de carrinho.", err)
		return errors.NewDBError("Falha ao commitar transação", err)
	}
	return nil
}

// FindLine busca uma linha pelo ID.
func (r *CartRepository) FindLine(ctx context.Context, lineID string) (domain.CartLine, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()
	return getLine(ctxTimeout, r.DB, `SELECT `+lineColumns+` FROM cart_lines WHERE id = $1`, lineID)
}

// ListLines devolve as linhas do usuário em ordem de criação.
func (r *CartRepository) ListLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	lines := []domain.CartLine{}
	err := r.DB.SelectContext(ctxTimeout, &lines,
		`SELECT `+lineColumns+` FROM cart_lines WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao listar carrinho", err)
	}
	return lines, nil
}

// DeleteLine remove a linha (NotFound se ausente).
func (r *CartRepository) DeleteLine(ctx context.Context, lineID string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()
	return deleteLine(ctxTimeout, r.DB, lineID)
}

// DeleteLinesByUser remove todas as linhas do usuário e devolve quantas eram.
func (r *CartRepository) DeleteLinesByUser(ctx context.Context, userID string) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM cart_lines WHERE user_id = $1`, userID)
	if err != nil {
		return 0, errors.NewDBError("Falha ao esvaziar carrinho", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	return int(n), nil
}

// pgCartTx implementa domain.CartTx sobre uma transação sqlx.
type pgCartTx struct {
	tx *sqlx.Tx
}

var _ domain.CartTx = (*pgCartTx)(nil)

func (t *pgCartTx) LockProduct(ctx context.Context, productID string) (domain.Product, error) {
	return productrepo.LockForUpdate(ctx, t.tx, productID)
}

func (t *pgCartTx) LineByID(ctx context.Context, lineID string) (domain.CartLine, error) {
	return getLine(ctx, t.tx, `SELECT `+lineColumns+` FROM cart_lines WHERE id = $1 FOR UPDATE`, lineID)
}

func (t *pgCartTx) LineByUserProduct(ctx context.Context, userID, productID string) (domain.CartLine, bool, error) {
	line, err := getLine(ctx, t.tx,
		`SELECT `+lineColumns+` FROM cart_lines WHERE user_id = $1 AND product_id = $2 FOR UPDATE`, userID, productID)
	if errors.IsNotFound(err) {
		return domain.CartLine{}, false, nil
	}
	if err != nil {
		return domain.CartLine{}, false, err
	}
	return line, true, nil
}

func (t *pgCartTx) DemandExcluding(ctx context.Context, productID, excludeLineID string) (int, error) {
	var total int
	// excludeLineID vazio não casa com nenhuma linha.
	err := t.tx.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(base_units), 0) FROM cart_lines WHERE product_id = $1 AND id <> $2`,
		productID, excludeLineID)
	if err != nil {
		return 0, errors.NewDBError("Falha ao somar demanda do produto", err)
	}
	return total, nil
}

func (t *pgCartTx) SaveLine(ctx context.Context, line domain.CartLine) (domain.CartLine, error) {
	now := time.Now().UTC()
	line.UpdatedAt = now

	if line.ID == "" {
		line.ID = uuid.New().String()
		line.CreatedAt = now
		_, err := t.tx.NamedExecContext(ctx, `
			INSERT INTO cart_lines (`+lineColumns+`)
			VALUES (:id, :user_id, :product_id, :quantity, :pack, :base_units, :unit_price_snapshot, :created_at, :updated_at)`, line)
		if err != nil {
			return domain.CartLine{}, errors.NewDBError("Falha ao inserir linha de carrinho", err)
		}
		return line, nil
	}

	result, err := t.tx.NamedExecContext(ctx, `
		UPDATE cart_lines
		SET quantity = :quantity, pack = :pack, base_units = :base_units,
			unit_price_snapshot = :unit_price_snapshot, updated_at = :updated_at
		WHERE id = :id`, line)
	if err != nil {
		return domain.CartLine{}, errors.NewDBError("Falha ao atualizar linha de carrinho", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.CartLine{}, errors.NewNotFoundError(fmt.Sprintf("Item de carrinho %s não existe.", line.ID))
	}
	return line, nil
}

func (t *pgCartTx) DeleteLine(ctx context.Context, lineID string) error {
	return deleteLine(ctx, t.tx, lineID)
}

func getLine(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (domain.CartLine, error) {
	var line domain.CartLine
	err := sqlx.GetContext(ctx, q, &line, query, args...)
	if err == sql.ErrNoRows {
		return domain.CartLine{}, errors.NewNotFoundError("Item de carrinho não existe.")
	}
	if err != nil {
		return domain.CartLine{}, errors.NewDBError("Falha ao buscar linha de carrinho", err)
	}
	return line, nil
}

func deleteLine(ctx context.Context, e sqlx.ExecerContext, lineID string) error {
	result, err := e.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID)
	if err != nil {
		return errors.NewDBError("Falha ao remover linha de carrinho", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if n == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Item de carrinho %s não existe.", lineID))
	}
	return nil
}
