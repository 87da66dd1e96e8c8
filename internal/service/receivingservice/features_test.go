package receivingservice_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
	"gopos/internal/repository/memrepo"
	"gopos/internal/service/receivingservice"
)

type receivingTestContext struct {
	store    *memrepo.Store
	svc      *receivingservice.Service
	products map[string]domain.Product
	order    domain.PurchaseOrder
	report   domain.ReceivingReport
	err      error
}

func (c *receivingTestContext) reset() {
	c.store = memrepo.New(logger.NewNop())
	c.svc = newService(c.store.PurchaseOrders(), c.store.Products(), nil)
	c.products = map[string]domain.Product{}
	c.order = domain.PurchaseOrder{}
	c.report = domain.ReceivingReport{}
	c.err = nil
}

func (c *receivingTestContext) aProductWithStockAndPackSize(name string, stock, packSize int) error {
	p, err := c.store.Products().Save(context.Background(), domain.Product{
		Name:      name,
		BaseStock: stock,
		PackSize:  packSize,
		UnitPrice: decimal.NewFromInt(1),
	})
	if err != nil {
		return err
	}
	c.products[name] = p
	return nil
}

func (c *receivingTestContext) aPurchaseOrderWithLines(table *godog.Table) error {
	var req domain.PurchaseOrderRequest
	for i, row := range table.Rows {
		if i == 0 {
			continue // cabeçalho
		}
		p, ok := c.products[row.Cells[0].Value]
		if !ok {
			return fmt.Errorf("produto %q não cadastrado", row.Cells[0].Value)
		}
		qty, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return err
		}
		req.Lines = append(req.Lines, domain.PurchaseOrderLine{
			ProductID: p.ID,
			Quantity:  qty,
			Pack:      row.Cells[2].Value == "packs",
		})
	}
	order, err := c.svc.CreatePurchaseOrder(context.Background(), req)
	if err != nil {
		return err
	}
	c.order = order
	return nil
}

func (c *receivingTestContext) theProductIsDeleted(name string) error {
	p, ok := c.products[name]
	if !ok {
		return fmt.Errorf("produto %q não cadastrado", name)
	}
	c.store.Products().DeleteProduct(context.Background(), p.ID)
	return nil
}

func (c *receivingTestContext) thePurchaseOrderIsReceived() error {
	report, err := c.svc.ReceiveOrder(context.Background(), c.order.ID)
	c.err = err
	if err == nil {
		c.report = report
	}
	return nil
}

func (c *receivingTestContext) theStockOfIs(name string, want int) error {
	p, ok := c.products[name]
	if !ok {
		return fmt.Errorf("produto %q não cadastrado", name)
	}
	got, err := c.store.Products().FindByID(context.Background(), p.ID)
	if err != nil {
		return err
	}
	if got.BaseStock != want {
		return fmt.Errorf("esperava estoque %d de %s, recebeu %d", want, name, got.BaseStock)
	}
	return nil
}

func (c *receivingTestContext) theReportLists(added, skipped int) error {
	if len(c.report.AddedProducts) != added || len(c.report.SkippedProducts) != skipped {
		return fmt.Errorf("esperava %d/%d, relatório tem %d adicionados e %d ignorados",
			added, skipped, len(c.report.AddedProducts), len(c.report.SkippedProducts))
	}
	return nil
}

func (c *receivingTestContext) theSkipReasonIs(reason string) error {
	for _, s := range c.report.SkippedProducts {
		if s.Reason == reason {
			return nil
		}
	}
	return fmt.Errorf("nenhuma linha ignorada com motivo %q", reason)
}

func (c *receivingTestContext) receivingFailsWith(category string) error {
	appErr, ok := apperror.AsAppError(c.err)
	if !ok || appErr.Category() != category {
		return fmt.Errorf("esperava %s, recebeu %v", category, c.err)
	}
	return nil
}

func InitializeReceivingScenario(ctx *godog.ScenarioContext) {
	tc := &receivingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a product "([^"]*)" with stock (\d+) and pack size (\d+)$`, tc.aProductWithStockAndPackSize)
	ctx.Step(`^a purchase order with lines:$`, tc.aPurchaseOrderWithLines)
	ctx.Step(`^the product "([^"]*)" is deleted$`, tc.theProductIsDeleted)
	ctx.Step(`^the purchase order is received$`, tc.thePurchaseOrderIsReceived)
	ctx.Step(`^the stock of "([^"]*)" is (\d+)$`, tc.theStockOfIs)
	ctx.Step(`^the report lists (\d+) added and (\d+) skipped products$`, tc.theReportLists)
	ctx.Step(`^the skip reason is "([^"]*)"$`, tc.theSkipReasonIs)
	ctx.Step(`^receiving fails with "([^"]*)"$`, tc.receivingFailsWith)
}

func TestReceivingFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeReceivingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/receiving.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
