package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikkanikki/inventory-engine/inventory"
	"github.com/nikkanikki/inventory-engine/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newSaleFixture(t *testing.T) (*inventory.SaleEngine, ledger.TxStore, *fakeCustomerLedger) {
	store, recorder := newTestStore(t)
	customers := &fakeCustomerLedger{}
	engine := inventory.NewSaleEngine(store, recorder, customers, testLogger())

	saveProduct(t, store, "prod-soap", "Soap", ledger.StageReady)
	saveProduct(t, store, "prod-giftset", "Gift Set", ledger.StageFinished)
	saveLocation(t, store, "loc-warehouse", "Main Warehouse")
	saveLocation(t, store, "loc-shop", "Shop Front")

	loc := ledger.LocationID("loc-warehouse")
	stockUp(t, recorder, "prod-soap", &loc, 30)
	stockUp(t, recorder, "prod-giftset", &loc, 10)

	return engine, store, customers
}

func saleItem(productID, locationID string, qty int64, price string) inventory.SaleItemInput {
	return inventory.SaleItemInput{
		ProductID:    ledger.ProductID(productID),
		LocationID:   ledger.LocationID(locationID),
		Quantity:     qty,
		PricePerUnit: dec(price),
	}
}

// =============================================================================
// SALE COMMIT TESTS
// =============================================================================

func TestSale_CommitsStockAndHeader(t *testing.T) {
	// GIVEN: 30 soap at the warehouse
	// WHEN: Selling 10 at 100.00
	// THEN: Stock drops to 20, header and one movement per line persist

	engine, store, _ := newSaleFixture(t)
	ctx := context.Background()

	sale, err := engine.RecordSale(ctx, inventory.SaleInput{
		Buyer: "Alamgir Traders",
		Items: []inventory.SaleItemInput{saleItem("prod-soap", "loc-warehouse", 10, "100")},
	})
	require.NoError(t, err)
	require.NotNil(t, sale)

	assert.Equal(t, int64(20), productQty(t, store, "prod-soap"))
	assert.Equal(t, int64(20), locationQty(t, store, "prod-soap", "loc-warehouse"))
	assert.True(t, dec("1000").Equal(sale.TotalAmount))
	assert.True(t, dec("1000").Equal(sale.FinalAmount))
	assert.NotEmpty(t, sale.InvoiceNumber)

	movements, err := store.MovementsByTransaction(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, int64(-10), movements[0].QuantityChange)
	assert.Equal(t, ledger.MovementSale, movements[0].Type)
}

func TestSale_InsufficientStockAbortsWholeSale(t *testing.T) {
	// GIVEN: 30 soap available at the warehouse
	// WHEN: A two-line sale where the second line asks for 40
	// THEN: The whole sale aborts - no header, no movements, no stock change

	engine, store, customers := newSaleFixture(t)
	ctx := context.Background()

	_, err := engine.RecordSale(ctx, inventory.SaleInput{
		Items: []inventory.SaleItemInput{
			saleItem("prod-giftset", "loc-warehouse", 2, "500"),
			saleItem("prod-soap", "loc-warehouse", 40, "100"),
		},
	})
	require.Error(t, err)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 1, "sales fail fast on the first deficient line")
	assert.Equal(t, int64(40), stockErr.Shortfalls[0].Required)
	assert.Equal(t, int64(30), stockErr.Shortfalls[0].Available)

	assert.Equal(t, int64(30), productQty(t, store, "prod-soap"))
	assert.Equal(t, int64(10), productQty(t, store, "prod-giftset"))

	sales, err := store.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Empty(t, customers.committed, "no notification for a failed sale")
}

func TestSale_PricingLadder(t *testing.T) {
	// GIVEN: A line under a "10+1" trade scheme plus item and bill discounts
	// WHEN: Committing the sale
	// THEN: Scheme, then amount, then percentage, at item then bill level

	engine, _, _ := newSaleFixture(t)
	ctx := context.Background()

	sale, err := engine.RecordSale(ctx, inventory.SaleInput{
		Items: []inventory.SaleItemInput{{
			ProductID:    "prod-soap",
			LocationID:   "loc-warehouse",
			Quantity:     22,
			PricePerUnit: dec("100"),
			TradeScheme:  "10+1",
			DiscountPct:  dec("10"),
		}},
		BillDiscountAmount: dec("300"),
	})
	require.NoError(t, err)

	// 22*100 = 2200; scheme frees 2 -> 2000; -10% -> 1800; bill -300 -> 1500
	assert.True(t, dec("2200").Equal(sale.TotalAmount), "total got %s", sale.TotalAmount)
	assert.True(t, dec("1800").Equal(sale.Items[0].FinalPrice), "line final got %s", sale.Items[0].FinalPrice)
	assert.True(t, dec("1500").Equal(sale.FinalAmount), "final got %s", sale.FinalAmount)
}

// =============================================================================
// CREDIT SALE TESTS
// =============================================================================

func TestSale_CreditSaleRejectsPayment(t *testing.T) {
	// GIVEN: A credit sale
	// WHEN: Submitted with a non-zero immediate payment
	// THEN: Rejected as a validation error

	engine, _, _ := newSaleFixture(t)

	_, err := engine.RecordSale(context.Background(), inventory.SaleInput{
		Buyer:           "Karim & Sons",
		CreditSale:      true,
		PaymentReceived: dec("500"),
		Items:           []inventory.SaleItemInput{saleItem("prod-soap", "loc-warehouse", 1, "100")},
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestSale_CreditSaleZeroPaymentAccepted(t *testing.T) {
	engine, _, customers := newSaleFixture(t)

	sale, err := engine.RecordSale(context.Background(), inventory.SaleInput{
		Buyer:      "Karim & Sons",
		CreditSale: true,
		Items:      []inventory.SaleItemInput{saleItem("prod-soap", "loc-warehouse", 5, "100")},
	})
	require.NoError(t, err)
	assert.True(t, sale.CreditSale)
	assert.True(t, sale.PaymentReceived.IsZero())

	require.Len(t, customers.committed, 1)
	assert.Equal(t, "Karim & Sons", customers.committed[0].Buyer)
	assert.True(t, dec("500").Equal(customers.committed[0].Amount))
}

// =============================================================================
// VALIDATION & NOTIFICATION TESTS
// =============================================================================

func TestSale_EmptyItems(t *testing.T) {
	engine, _, _ := newSaleFixture(t)
	_, err := engine.RecordSale(context.Background(), inventory.SaleInput{Buyer: "X"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestSale_UnknownProductOrLocation(t *testing.T) {
	engine, _, _ := newSaleFixture(t)
	ctx := context.Background()

	_, err := engine.RecordSale(ctx, inventory.SaleInput{
		Items: []inventory.SaleItemInput{saleItem("prod-nope", "loc-warehouse", 1, "10")},
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = engine.RecordSale(ctx, inventory.SaleInput{
		Items: []inventory.SaleItemInput{saleItem("prod-soap", "loc-nope", 1, "10")},
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSale_NotificationFailureDoesNotRollBack(t *testing.T) {
	// GIVEN: A customer ledger that always fails
	// WHEN: Committing a sale
	// THEN: The sale still succeeds; the failure is logged, not propagated

	store, recorder := newTestStore(t)
	customers := &fakeCustomerLedger{fail: assert.AnError}
	engine := inventory.NewSaleEngine(store, recorder, customers, testLogger())

	saveProduct(t, store, "prod-soap", "Soap", ledger.StageReady)
	saveLocation(t, store, "loc-warehouse", "Main Warehouse")
	loc := ledger.LocationID("loc-warehouse")
	stockUp(t, recorder, "prod-soap", &loc, 10)

	sale, err := engine.RecordSale(context.Background(), inventory.SaleInput{
		Items: []inventory.SaleItemInput{saleItem("prod-soap", "loc-warehouse", 3, "50")},
	})
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, int64(7), productQty(t, store, "prod-soap"))
}
