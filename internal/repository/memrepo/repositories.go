package memrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
)

// --- Produtos ---

// ProductRepository é a visão de produtos do Store.
type ProductRepository struct{ s *Store }

// Save insere um produto novo. Códigos de barras repetidos são Conflict, como a
// restrição UNIQUE do Postgres.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	err := r.s.inTx(ctx, func(tx *memTx) error {
		for _, p := range r.s.products {
			if barcodeClash(p, product) {
				return apperror.NewConflictError("Código de barras já cadastrado em outro produto.")
			}
		}
		if product.ID == "" {
			product.ID = uuid.New().String()
		}
		if product.Version == 0 {
			product.Version = 1
		}
		tx.products[product.ID] = product
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func barcodeClash(a, b domain.Product) bool {
	codes := map[string]bool{}
	for _, c := range []string{a.UnitBarcode, a.PackBarcode} {
		if c != "" {
			codes[c] = true
		}
	}
	return (b.UnitBarcode != "" && codes[b.UnitBarcode]) || (b.PackBarcode != "" && codes[b.PackBarcode])
}

// FindByID busca um produto pelo ID.
func (r *ProductRepository) FindByID(_ context.Context, id string) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	return p, nil
}

// FindByIDs devolve os produtos encontrados; IDs ausentes ficam fora do mapa.
func (r *ProductRepository) FindByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// FindByBarcode casa primeiro o código do pacote, depois o da unidade.
func (r *ProductRepository) FindByBarcode(_ context.Context, code string) (domain.Product, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.PackBarcode != "" && p.PackBarcode == code {
			return p, true, nil
		}
	}
	for _, p := range r.s.products {
		if p.UnitBarcode != "" && p.UnitBarcode == code {
			return p, false, nil
		}
	}
	return domain.Product{}, false, apperror.NewNotFoundError(fmt.Sprintf("Nenhum produto com o código de barras %s.", code))
}

// FindAll lista produtos ordenados por nome, com filtro e paginação.
func (r *ProductRepository) FindAll(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Product, 0, len(r.s.products))
	name := strings.ToLower(filter.Name)
	for _, p := range r.s.products {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= len(out) {
			return []domain.Product{}, nil
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

// DeleteProduct remove o produto. Só existe no store em memória, para simular um
// produto apagado entre a criação e o recebimento de um pedido.
func (r *ProductRepository) DeleteProduct(_ context.Context, id string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.products, id)
}

// --- Promoções ---

// PromotionRepository é a visão de promoções do Store.
type PromotionRepository struct{ s *Store }

var _ domain.PromotionLookup = (*PromotionRepository)(nil)

// Save grava a promoção.
func (r *PromotionRepository) Save(_ context.Context, promo domain.Promotion) (domain.Promotion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	r.s.promotions[promo.ProductID] = append(r.s.promotions[promo.ProductID], promo)
	return promo, nil
}

// ActiveFor aplica domain.PickActive às promoções de cada produto.
func (r *PromotionRepository) ActiveFor(_ context.Context, productIDs []string, on time.Time) (map[string]domain.Promotion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[string]domain.Promotion)
	for _, id := range productIDs {
		if p, ok := domain.PickActive(r.s.promotions[id], on); ok {
			out[id] = p
		}
	}
	return out, nil
}

// --- Carrinho ---

// CartRepository é a visão de carrinho do Store.
type CartRepository struct{ s *Store }

// InTx executa fn numa transação em memória.
func (r *CartRepository) InTx(ctx context.Context, fn func(tx domain.CartTx) error) error {
	return r.s.inTx(ctx, func(tx *memTx) error { return fn(tx) })
}

// FindLine busca uma linha pelo ID.
func (r *CartRepository) FindLine(_ context.Context, lineID string) (domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lines[lineID]
	if !ok {
		return domain.CartLine{}, apperror.NewNotFoundError(fmt.Sprintf("Item de carrinho %s não existe.", lineID))
	}
	return l, nil
}

// ListLines devolve as linhas do usuário em ordem de criação.
func (r *CartRepository) ListLines(_ context.Context, userID string) ([]domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.CartLine{}
	for _, l := range r.s.lines {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteLine remove a linha (NotFound se ausente).
func (r *CartRepository) DeleteLine(ctx context.Context, lineID string) error {
	return r.s.inTx(ctx, func(tx *memTx) error { return tx.DeleteLine(ctx, lineID) })
}

// DeleteLinesByUser remove todas as linhas do usuário e devolve quantas eram.
func (r *CartRepository) DeleteLinesByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, l := range r.s.lines {
		if l.UserID == userID {
			delete(r.s.lines, id)
			n++
		}
	}
	return n, nil
}

// --- Pedidos de compra ---

// PurchaseOrderRepository é a visão de pedidos de compra do Store.
type PurchaseOrderRepository struct{ s *Store }

// InTx executa fn numa transação em memória.
func (r *PurchaseOrderRepository) InTx(ctx context.Context, fn func(tx domain.ReceivingTx) error) error {
	return r.s.inTx(ctx, func(tx *memTx) error { return fn(tx) })
}

// Create grava o pedido com as linhas.
func (r *PurchaseOrderRepository) Create(_ context.Context, order domain.PurchaseOrder) (domain.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.orders[order.ID]; exists {
		return domain.PurchaseOrder{}, apperror.NewConflictError(fmt.Sprintf("Pedido de compra %s já existe.", order.ID))
	}
	r.s.orders[order.ID] = copyOrder(order)
	return order, nil
}

// FindByID busca o pedido com as linhas.
func (r *PurchaseOrderRepository) FindByID(_ context.Context, id string) (domain.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return domain.PurchaseOrder{}, apperror.NewNotFoundError(fmt.Sprintf("Pedido de compra %s não existe.", id))
	}
	return copyOrder(o), nil
}

// --- Usuários ---

// UserRepository é a visão de usuários do Store.
type UserRepository struct{ s *Store }

// Save insere um usuário; e-mail repetido é Conflict.
func (r *UserRepository) Save(_ context.Context, user domain.User) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := r.s.users[key]; exists {
		return domain.User{}, apperror.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", user.Email))
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.s.users[key] = user
	return user, nil
}

// FindByEmail busca um usuário pelo e-mail.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[strings.ToLower(email)]
	if !ok {
		return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
	}
	return u, nil
}
