// Package memrepo é a persistência em memória de processo, usada com
// STORE_DRIVER=memory e nos testes de comportamento. Uma única trava protege todo o
// estado, o que serializa as transações da mesma forma que o bloqueio de linha do
// Postgres serializa os escritores de um produto.
package memrepo

import (
	"context"
	"sync"
	"time"

	"gopos/internal/domain"
	"gopos/internal/pkg/logger"
)

// Store guarda todas as entidades. Os repositórios por agregado (Products, Carts, …)
// são visões sobre o mesmo Store.
type Store struct {
	mu sync.Mutex

	products   map[string]domain.Product
	promotions map[string][]domain.Promotion // por product_id
	lines      map[string]domain.CartLine
	orders     map[string]domain.PurchaseOrder
	users      map[string]domain.User // por email

	logger logger.Logger
	now    func() time.Time
}

// New cria um Store vazio.
func New(log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		products:   make(map[string]domain.Product),
		promotions: make(map[string][]domain.Promotion),
		lines:      make(map[string]domain.CartLine),
		orders:     make(map[string]domain.PurchaseOrder),
		users:      make(map[string]domain.User),
		logger:     log,
		now:        time.Now,
	}
}

// inTx executa fn com a trava do Store tomada; fn só pode usar o memTx, nunca os
// repositórios do Store (a trava não é reentrante). As escritas de fn ficam no tx e só são
// aplicadas se fn devolver nil; caso contrário são descartadas (rollback).
func (s *Store) inTx(ctx context.Context, fn func(tx *memTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemTx(s)
	if err := fn(tx); err != nil {
		s.logger.Debug("Transação em memória descartada.", map[string]interface{}{"reason": err.Error()})
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Products devolve o repositório de produtos.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Promotions devolve o repositório de promoções.
func (s *Store) Promotions() *PromotionRepository { return &PromotionRepository{s: s} }

// Carts devolve o repositório de carrinho.
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// PurchaseOrders devolve o repositório de pedidos de compra.
func (s *Store) PurchaseOrders() *PurchaseOrderRepository { return &PurchaseOrderRepository{s: s} }

// Users devolve o repositório de usuários.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }
