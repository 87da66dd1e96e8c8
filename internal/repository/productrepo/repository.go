package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gopos/internal/domain"
	"gopos/internal/errors"
	"gopos/internal/pkg/cache"
	"gopos/internal/pkg/logger"
)

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

const productColumns = `id, name, unit_barcode, pack_barcode, base_stock, pack_size,
	unit_price, pack_price, purchase_price, expiration_date, version, created_at, updated_at`

// uniqueViolation é o código SQLSTATE do PostgreSQL para restrição UNIQUE.
const uniqueViolation = "23505"

// ProductRepository contém as conexões necessárias para acessar produtos.
type ProductRepository struct {
	DB        *sqlx.DB     // Conexão principal com o banco de dados (PostgreSQL)
	Cache     cache.Client // Cliente para operações de cache (Redis)
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewProductRepository(db *sqlx.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, log logger.Logger) *ProductRepository {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    log,
	}
}

// Save persiste um novo produto.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if product.Version == 0 {
		product.Version = 1
	}

	const insertSQL = `INSERT INTO products (` + productColumns + `)
		VALUES (:id, :name, :unit_barcode, :pack_barcode, :base_stock, :pack_size,
			:unit_price, :pack_price, :purchase_price, :expiration_date, :version, :created_at, :updated_at)`

	dbProduct := toRow(product)
	if _, err := r.DB.NamedExecContext(ctxTimeout, insertSQL, dbProduct); err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			r.logger.Warn("Código de barras duplicado ao salvar produto.", map[string]interface{}{"constraint": pqErr.Constraint})
			return domain.Product{}, errors.NewConflictError("Código de barras já cadastrado em outro produto.")
		}
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, errors.NewDBError("failed to insert product", err)
	}

	r.logger.Info("Produto salvo com sucesso no repositório.", map[string]interface{}{"product_id": product.ID})
	return product, nil
}

// FindByID busca um produto pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, id)

	// --- Cache-Aside (READ) ---
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		var product domain.Product
		if json.Unmarshal([]byte(cachedData), &product) == nil {
			r.logger.Debug("Produto servido do cache.", map[string]interface{}{"product_id": id})
			return product, nil
		}
		r.logger.Warn("Entrada de cache de produto corrompida.", map[string]interface{}{"key": key})
	} else if err != cache.ErrCacheMiss {
		// Falha real de cache: segue para o DB.
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	var row productRow
	err = r.DB.GetContext(ctxTimeout, &row, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto no DB", err)
	}
	product := row.toDomain()

	// --- Cache-Aside (WRITE) ---
	if productJSON, marshalErr := json.Marshal(product); marshalErr == nil {
		if setErr := r.Cache.Set(ctxTimeout, key, productJSON, r.CacheTTL); setErr != nil {
			r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"key": key, "error": setErr.Error()})
		}
	}

	return product, nil
}

// FindByIDs busca vários produtos de uma vez. IDs ausentes ficam fora do mapa.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var rows []productRow
	if err := r.DB.SelectContext(ctxTimeout, &rows, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, errors.NewDBError("Falha ao buscar produtos no DB", err)
	}
	for _, row := range rows {
		out[row.ID] = row.toDomain()
	}
	return out, nil
}

// FindByBarcode casa o código do pacote antes do código da unidade; pack informa qual casou.
func (r *ProductRepository) FindByBarcode(ctx context.Context, code string) (domain.Product, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var row productRow
	err := r.DB.GetContext(ctxTimeout, &row, `
		SELECT `+productColumns+`
		FROM products
		WHERE pack_barcode = $1 OR unit_barcode = $1
		ORDER BY (pack_barcode = $1) DESC
		LIMIT 1`, code)
	if err == sql.ErrNoRows {
		return domain.Product{}, false, errors.NewNotFoundError(fmt.Sprintf("Nenhum produto com o código de barras %s.", code))
	}
	if err != nil {
		return domain.Product{}, false, errors.NewDBError("Falha ao buscar produto por código de barras", err)
	}
	product := row.toDomain()
	return product, product.PackBarcode == code, nil
}

// FindAll lista produtos com filtro por nome e paginação.
func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE ($1 = '' OR name ILIKE '%' || $1 || '%') ORDER BY name, id`
	args := []interface{}{filter.Name}
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, filter.Limit, (page-1)*filter.Limit)
	}

	var rows []productRow
	if err := r.DB.SelectContext(ctxTimeout, &rows, query, args...); err != nil {
		return nil, errors.NewDBError("Falha ao listar produtos", err)
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Invalidate descarta as entradas de cache dos produtos. Falhas só são logadas: a
// entrada expira pelo TTL de qualquer forma.
func (r *ProductRepository) Invalidate(ctx context.Context, productIDs ...string) {
	if len(productIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, fmt.Sprintf(productCacheKey, id))
	}
	if err := r.Cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn("Falha ao invalidar cache de produtos.", map[string]interface{}{"keys": keys, "error": err.Error()})
	}
}

// LockForUpdate lê o produto com SELECT ... FOR UPDATE dentro de tx. É o primeiro
// bloqueio de toda transação que mexe em estoque ou em demanda de carrinho.
func LockForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (domain.Product, error) {
	var row productRow
	err := tx.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		return domain.Product{}, errors.NewDBError("Falha ao bloquear produto", err)
	}
	return row.toDomain(), nil
}

// productRow espelha a tabela products; barcodes vazios são gravados como NULL para
// não colidirem na restrição UNIQUE.
type productRow struct {
	domain.Product
	UnitBarcode sql.NullString `db:"unit_barcode"`
	PackBarcode sql.NullString `db:"pack_barcode"`
}

func toRow(p domain.Product) productRow {
	return productRow{
		Product:     p,
		UnitBarcode: sql.NullString{String: p.UnitBarcode, Valid: p.UnitBarcode != ""},
		PackBarcode: sql.NullString{String: p.PackBarcode, Valid: p.PackBarcode != ""},
	}
}

func (row productRow) toDomain() domain.Product {
	p := row.Product
	p.UnitBarcode = row.UnitBarcode.String
	p.PackBarcode = row.PackBarcode.String
	return p
}
