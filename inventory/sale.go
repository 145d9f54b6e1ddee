/*
sale.go - Sale engine

PURPOSE:
  Validates per-location stock for every line, prices the bill through the
  pricing package, and commits header + items + one sale movement per line
  as one atomic unit.

FAIL-FAST STOCK CHECK:
  A sale is an ordered list; partial commitment is disallowed. The first
  line that exceeds its location's stock aborts the whole sale with the
  available/requested detail for that line.

CREDIT SALES:
  credit_sale means zero immediate payment; the buyer's outstanding balance
  grows by the final amount (tracked by the external customer ledger). The
  engine rejects a credit sale with a non-zero payment. Callers validate
  this too; it is re-checked here defensively.

SEE ALSO:
  - pricing/pricing.go: The discount ladder
  - customer.go: Post-commit balance notification
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nikkanikki/inventory-engine/ledger"
	"github.com/nikkanikki/inventory-engine/pricing"
)

// =============================================================================
// SALE ENGINE
// =============================================================================

// SaleInput is what the forms layer submits for one sale.
type SaleInput struct {
	Buyer              string
	SaleDate           time.Time
	Items              []SaleItemInput
	BillDiscountPct    decimal.Decimal
	BillDiscountAmount decimal.Decimal
	PaymentReceived    decimal.Decimal
	CreditSale         bool
}

// SaleItemInput is one requested line.
type SaleItemInput struct {
	ProductID      ledger.ProductID
	LocationID     ledger.LocationID
	Quantity       int64
	PricePerUnit   decimal.Decimal
	TradeScheme    string
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
}

// SaleEngine validates, prices, and commits sales.
type SaleEngine struct {
	store     ledger.TxStore
	recorder  *ledger.Recorder
	customers CustomerLedger
	log       *logrus.Logger
}

// NewSaleEngine creates a sale engine. customers may not be nil; use
// LoggedCustomerLedger when no real collaborator exists.
func NewSaleEngine(store ledger.TxStore, recorder *ledger.Recorder, customers CustomerLedger, log *logrus.Logger) *SaleEngine {
	return &SaleEngine{store: store, recorder: recorder, customers: customers, log: log}
}

// RecordSale commits one sale atomically and notifies the customer ledger.
func (e *SaleEngine) RecordSale(ctx context.Context, in SaleInput) (*ledger.SaleTransaction, error) {
	if len(in.Items) == 0 {
		return nil, &ledger.ValidationError{Field: "items", Message: "at least one item required"}
	}
	if in.CreditSale && !in.PaymentReceived.IsZero() {
		return nil, &ledger.ValidationError{Field: "payment_received", Message: "must be zero for a credit sale"}
	}
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, &ledger.ValidationError{Field: itemField(i, "quantity"), Message: "must be positive"}
		}
		if item.PricePerUnit.IsNegative() {
			return nil, &ledger.ValidationError{Field: itemField(i, "price_per_unit"), Message: "must not be negative"}
		}
	}

	saleDate := in.SaleDate
	if saleDate.IsZero() {
		saleDate = e.recorder.Clock().Now()
	}
	saleID := ledger.NewTransactionID()

	// Stock validation first, fail-fast on the first deficient line.
	// Nothing is written until every line has passed.
	items := make([]ledger.SaleItem, 0, len(in.Items))
	itemPrices := make([]pricing.ItemPrice, 0, len(in.Items))
	movements := make([]ledger.Movement, 0, len(in.Items))

	for _, item := range in.Items {
		product, err := e.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, &ledger.NotFoundError{Kind: "product", Ref: string(item.ProductID)}
		}
		location, err := e.store.GetLocation(ctx, item.LocationID)
		if err != nil {
			return nil, err
		}
		if location == nil {
			return nil, &ledger.NotFoundError{Kind: "location", Ref: string(item.LocationID)}
		}

		available, err := e.store.GetLocationStock(ctx, item.ProductID, item.LocationID)
		if err != nil {
			return nil, err
		}
		if item.Quantity > available {
			loc := item.LocationID
			return nil, &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
				ProductID:  product.ID,
				Product:    product.Name,
				Stage:      product.Stage,
				LocationID: &loc,
				Location:   location.Name,
				Required:   item.Quantity,
				Available:  available,
			}}}
		}

		price := pricing.PriceItem(item.Quantity, item.PricePerUnit, item.TradeScheme, item.DiscountPct, item.DiscountAmount)
		itemPrices = append(itemPrices, price)
		items = append(items, ledger.SaleItem{
			ProductID:      item.ProductID,
			LocationID:     item.LocationID,
			Quantity:       item.Quantity,
			PricePerUnit:   item.PricePerUnit,
			TradeScheme:    item.TradeScheme,
			DiscountPct:    item.DiscountPct,
			DiscountAmount: item.DiscountAmount,
			TotalPrice:     price.Total,
			FinalPrice:     price.Final,
		})

		loc := item.LocationID
		movements = append(movements, ledger.Movement{
			ProductID:         item.ProductID,
			LocationID:        &loc,
			QuantityChange:    -item.Quantity,
			Type:              ledger.MovementSale,
			OccurredAt:        saleDate,
			SourceTransaction: saleID,
		})
	}

	bill := pricing.PriceBill(itemPrices, in.BillDiscountPct, in.BillDiscountAmount)
	sale := ledger.SaleTransaction{
		ID:                 saleID,
		InvoiceNumber:      ledger.NewInvoiceNumber(),
		Buyer:              in.Buyer,
		SaleDate:           saleDate,
		Items:              items,
		BillDiscountPct:    in.BillDiscountPct,
		BillDiscountAmount: in.BillDiscountAmount,
		TotalAmount:        bill.TotalAmount,
		FinalAmount:        bill.FinalAmount,
		PaymentReceived:    in.PaymentReceived,
		CreditSale:         in.CreditSale,
	}

	err := e.recorder.Record(ctx, movements, func(s ledger.Store) error {
		return s.InsertSale(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	// Notification is outside the atomic unit: the collaborator is an
	// external system, and a failed notification must not roll back stock.
	if err := e.customers.SaleCommitted(ctx, sale.Buyer, sale.ID, sale.FinalAmount); err != nil {
		e.log.WithError(err).WithField("sale", sale.ID).Warn("customer ledger notification failed")
	}

	return &sale, nil
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
