package cartservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
)

// CartRepository define o contrato que o Serviço de Carrinho espera da camada de Persistência.
type CartRepository interface {
	InTx(ctx context.Context, fn func(tx domain.CartTx) error) error
	FindLine(ctx context.Context, lineID string) (domain.CartLine, error)
	ListLines(ctx context.Context, userID string) ([]domain.CartLine, error)
	DeleteLine(ctx context.Context, lineID string) error
	DeleteLinesByUser(ctx context.Context, userID string) (int, error)
}

// ProductReader é a parte de leitura do catálogo usada fora das transações.
type ProductReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	FindByBarcode(ctx context.Context, code string) (domain.Product, bool, error)
}

// Service é o motor do carrinho: valida cada mutação contra o estoque e as promoções
// vigentes e mantém o preço autoritativo de cada linha.
type Service struct {
	repo     CartRepository
	products ProductReader
	promos   domain.PromotionLookup
	logger   logger.Logger
	now      func() time.Time
}

// NewService cria e retorna uma nova instância do Serviço de Carrinho.
func NewService(repo CartRepository, products ProductReader, promos domain.PromotionLookup, logger logger.Logger) *Service {
	return &Service{repo: repo, products: products, promos: promos, logger: logger, now: time.Now}
}

// WithClock troca o relógio usado para validade e promoções.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddItem cria a linha do produto no carrinho do usuário (1 unidade) ou soma 1 à
// linha existente, na unidade em que ela está.
func (s *Service) AddItem(ctx context.Context, productID, userID string) (domain.CartLine, error) {
	if strings.TrimSpace(productID) == "" || strings.TrimSpace(userID) == "" {
		return domain.CartLine{}, apperror.NewValidationError("Produto e usuário são obrigatórios.")
	}
	return s.addOne(ctx, productID, userID, nil)
}

// AddItemByBarcode resolve o código contra o código de barras do pacote e da unidade.
// A unidade da linha segue o campo que casou.
func (s *Service) AddItemByBarcode(ctx context.Context, code, userID string) (domain.CartLine, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(userID) == "" {
		return domain.CartLine{}, apperror.NewValidationError("Código de barras e usuário são obrigatórios.")
	}

	product, pack, err := s.products.FindByBarcode(ctx, code)
	if err != nil {
		return domain.CartLine{}, err
	}

	s.logger.Debug("Código de barras resolvido.", map[string]interface{}{"barcode": code, "product_id": product.ID, "pack": pack})
	return s.addOne(ctx, product.ID, userID, &pack)
}

// addOne é o núcleo de AddItem/AddItemByBarcode. wantPack nil mantém a unidade da
// linha existente (ou unidade, para linha nova).
func (s *Service) addOne(ctx context.Context, productID, userID string, wantPack *bool) (domain.CartLine, error) {
	// A promoção é lida antes de InTx: o corpo da transação só usa o tx.
	promo, err := s.activePromotion(ctx, productID)
	if err != nil {
		s.logRejection("AddItem", productID, err)
		return domain.CartLine{}, err
	}

	var saved domain.CartLine
	err = s.repo.InTx(ctx, func(tx domain.CartTx) error {
		product, err := tx.LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product.IsExpired(s.now()) {
			return apperror.NewExpiredError(product.ID, product.Name)
		}
		if product.BaseStock < 1 {
			return apperror.NewOutOfStockError(product.ID, product.Name)
		}

		line, exists, err := tx.LineByUserProduct(ctx, userID, productID)
		if err != nil {
			return err
		}

		q := domain.Units(1)
		if exists {
			q = line.Qty().WithCount(line.Quantity + 1)
		} else {
			line = domain.CartLine{UserID: userID, ProductID: productID}
		}
		if wantPack != nil {
			q.Pack = *wantPack
		}
		enteringPack := q.Pack && !(exists && line.Pack)
		if enteringPack && promo != nil {
			return apperror.NewPromotionPackConflictError(product.ID, product.Name)
		}

		if !q.Fits(product.EffectivePackSize()) {
			return apperror.NewInvalidQuantityError(q.Count)
		}
		next := line.WithQty(q, product.EffectivePackSize())
		if err := s.checkDemand(ctx, tx, product, next); err != nil {
			return err
		}
		next.UnitPriceSnapshot = domain.ComputeLinePrice(product, next.Pack, promo)

		saved, err = tx.SaveLine(ctx, next)
		return err
	})
	if err != nil {
		s.logRejection("AddItem", productID, err)
		return domain.CartLine{}, err
	}

	s.logger.Info("Item adicionado ao carrinho.", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"line_id":    saved.ID,
		"quantity":   saved.Quantity,
		"pack":       saved.Pack,
		"base_units": saved.BaseUnits,
	})
	return saved, nil
}

// SetQuantity troca a quantidade da linha (na unidade atual). newQuantity <= 0 remove
// a linha; nesse caso removed é true.
func (s *Service) SetQuantity(ctx context.Context, lineID string, newQuantity int) (line domain.CartLine, removed bool, err error) {
	return s.UpdateLine(ctx, lineID, domain.CartLineUpdate{Quantity: &newQuantity})
}

// TogglePack inverte a unidade da linha. A contagem numérica é mantida, então a demanda
// em unidades base muda pelo fator packSize e é revalidada.
func (s *Service) TogglePack(ctx context.Context, lineID string) (domain.CartLine, error) {
	current, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		return domain.CartLine{}, err
	}
	pack := current.Qty().Toggled().Pack
	line, _, err := s.UpdateLine(ctx, lineID, domain.CartLineUpdate{Pack: &pack})
	return line, err
}

// UpdateLine aplica quantidade e/ou unidade numa única transação. Uma mutação
// rejeitada deixa a linha exatamente como estava.
func (s *Service) UpdateLine(ctx context.Context, lineID string, upd domain.CartLineUpdate) (domain.CartLine, bool, error) {
	if upd.Quantity != nil && *upd.Quantity <= 0 {
		if err := s.RemoveItem(ctx, lineID); err != nil {
			return domain.CartLine{}, false, err
		}
		return domain.CartLine{}, true, nil
	}

	// Lê a linha fora da transação só para descobrir o produto: o bloqueio é sempre
	// tomado no produto primeiro.
	current, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		return domain.CartLine{}, false, err
	}

	promo, err := s.activePromotion(ctx, current.ProductID)
	if err != nil {
		s.logRejection("UpdateLine", current.ProductID, err)
		return domain.CartLine{}, false, err
	}

	var saved domain.CartLine
	err = s.repo.InTx(ctx, func(tx domain.CartTx) error {
		product, err := tx.LockProduct(ctx, current.ProductID)
		if err != nil {
			return err
		}
		line, err := tx.LineByID(ctx, lineID)
		if err != nil {
			return err
		}

		q := line.Qty()
		if upd.Quantity != nil {
			q = q.WithCount(*upd.Quantity)
		}
		if upd.Pack != nil {
			q.Pack = *upd.Pack
		}

		if q.Pack && !line.Pack && promo != nil {
			return apperror.NewPromotionPackConflictError(product.ID, product.Name)
		}
		if !q.Fits(product.EffectivePackSize()) {
			return apperror.NewInvalidQuantityError(q.Count)
		}

		next := line.WithQty(q, product.EffectivePackSize())
		if next.BaseUnits > line.BaseUnits && product.IsExpired(s.now()) {
			return apperror.NewExpiredError(product.ID, product.Name)
		}
		if err := s.checkDemand(ctx, tx, product, next); err != nil {
			return err
		}
		next.UnitPriceSnapshot = domain.ComputeLinePrice(product, next.Pack, promo)

		saved, err = tx.SaveLine(ctx, next)
		return err
	})
	if err != nil {
		s.logRejection("UpdateLine", current.ProductID, err)
		return domain.CartLine{}, false, err
	}

	s.logger.Info("Linha do carrinho atualizada.", map[string]interface{}{
		"line_id":    saved.ID,
		"quantity":   saved.Quantity,
		"pack":       saved.Pack,
		"base_units": saved.BaseUnits,
	})
	return saved, false, nil
}

// RemoveItem remove a linha incondicionalmente.
func (s *Service) RemoveItem(ctx context.Context, lineID string) error {
	if err := s.repo.DeleteLine(ctx, lineID); err != nil {
		return err
	}
	s.logger.Info("Linha removida do carrinho.", map[string]interface{}{"line_id": lineID})
	return nil
}

// ClearAll esvazia o carrinho do usuário. Limpar um carrinho vazio não é erro.
func (s *Service) ClearAll(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, apperror.NewValidationError("Usuário é obrigatório.")
	}
	n, err := s.repo.DeleteLinesByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Carrinho esvaziado.", map[string]interface{}{"user_id": userID, "removed": n})
	return n, nil
}

// Line devolve uma linha pelo ID.
func (s *Service) Line(ctx context.Context, lineID string) (domain.CartLine, error) {
	return s.repo.FindLine(ctx, lineID)
}

// PriceLine devolve o preço unitário autoritativo da linha hoje. É o preço que o
// fechamento do pedido consome.
func (s *Service) PriceLine(ctx context.Context, line domain.CartLine) (decimal.Decimal, error) {
	products, err := s.products.FindByIDs(ctx, []string{line.ProductID})
	if err != nil {
		return decimal.Zero, err
	}
	product, ok := products[line.ProductID]
	if !ok {
		return decimal.Zero, apperror.NewNotFoundError("Produto " + line.ProductID + " não existe.")
	}
	promo, err := s.activePromotion(ctx, line.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.ComputeLinePrice(product, line.Pack, promo), nil
}

// ViewCart recarrega o carrinho com uma única consulta de promoções para todos os
// produtos. Totais usam o preço vigente; PriceChanged sinaliza linhas cujo preço
// acordado na última mutação difere do atual (e.g., promoção expirada).
func (s *Service) ViewCart(ctx context.Context, userID string) (domain.CartView, error) {
	view := domain.CartView{UserID: userID, Lines: []domain.CartLineView{}, Total: decimal.Zero, Discount: decimal.Zero}

	lines, err := s.repo.ListLines(ctx, userID)
	if err != nil {
		return view, err
	}
	if len(lines) == 0 {
		return view, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return view, err
	}
	promos, err := s.promos.ActiveFor(ctx, ids, s.now())
	if err != nil {
		return view, apperror.NewInternalError("Falha ao consultar promoções.", err)
	}

	priced := make([]domain.PricedLine, 0, len(lines))
	for _, l := range lines {
		product, ok := products[l.ProductID]
		if !ok {
			s.logger.Warn("Linha de carrinho aponta para produto inexistente.", map[string]interface{}{"line_id": l.ID, "product_id": l.ProductID})
			continue
		}
		pl := domain.PricedLine{Line: l, Product: product}
		if p, ok := promos[l.ProductID]; ok {
			p := p
			pl.Promotion = &p
		}
		priced = append(priced, pl)

		current := domain.ComputeLinePrice(product, l.Pack, pl.Promotion)
		view.Lines = append(view.Lines, domain.CartLineView{
			CartLine:        l,
			ProductName:     product.Name,
			CurrentPrice:    current,
			ListPrice:       product.ListPrice(l.Pack),
			PromotionActive: pl.Promotion != nil,
			PriceChanged:    !current.Equal(l.UnitPriceSnapshot),
			LineTotal:       domain.ComputeLineTotal(pl),
		})
	}

	view.Total = domain.ComputeCartTotal(priced)
	view.Discount = domain.ComputeDiscount(priced)
	return view, nil
}

// checkDemand exige que a demanda total do produto (linhas dos outros carrinhos +
// nova demanda desta linha) caiba em BaseStock. Roda com o produto bloqueado.
func (s *Service) checkDemand(ctx context.Context, tx domain.CartTx, product domain.Product, next domain.CartLine) error {
	other, err := tx.DemandExcluding(ctx, product.ID, next.ID)
	if err != nil {
		return err
	}
	available := product.BaseStock - other
	if next.BaseUnits <= available {
		return nil
	}
	if product.BaseStock < 1 {
		return apperror.NewOutOfStockError(product.ID, product.Name)
	}
	return apperror.NewInsufficientStockError(product.ID, product.Name, next.BaseUnits, available)
}

func (s *Service) activePromotion(ctx context.Context, productID string) (*domain.Promotion, error) {
	promos, err := s.promos.ActiveFor(ctx, []string{productID}, s.now())
	if err != nil {
		return nil, apperror.NewInternalError("Falha ao consultar promoções.", err)
	}
	if p, ok := promos[productID]; ok {
		return &p, nil
	}
	return nil, nil
}

// logRejection registra recusas de negócio como aviso e falhas de infraestrutura como erro.
func (s *Service) logRejection(op, productID string, err error) {
	var internal *apperror.InternalError
	if errors.As(err, &internal) {
		s.logger.Error("Falha interna em "+op+".", err)
		return
	}
	s.logger.Warn("Mutação de carrinho recusada.", map[string]interface{}{"op": op, "product_id": productID, "reason": err.Error()})
}
