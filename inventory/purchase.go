/*
purchase.go - Purchase engine

PURPOSE:
  Brings stock into the system from outside. One positive movement, placed
  at a location when one is given, otherwise against the aggregate only.
*/
package inventory

import (
	"context"
	"time"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// PURCHASE ENGINE
// =============================================================================

// PurchaseEngine validates and commits incoming stock.
type PurchaseEngine struct {
	store    ledger.TxStore
	recorder *ledger.Recorder
}

func NewPurchaseEngine(store ledger.TxStore, recorder *ledger.Recorder) *PurchaseEngine {
	return &PurchaseEngine{store: store, recorder: recorder}
}

// RecordPurchase adds quantity units of a product on the given date.
func (e *PurchaseEngine) RecordPurchase(ctx context.Context, productID ledger.ProductID, locationID *ledger.LocationID, quantity int64, date time.Time, notes string) (*ledger.PurchaseRecord, error) {
	if quantity <= 0 {
		return nil, &ledger.ValidationError{Field: "quantity", Message: "must be positive"}
	}

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &ledger.NotFoundError{Kind: "product", Ref: string(productID)}
	}
	if locationID != nil {
		location, err := e.store.GetLocation(ctx, *locationID)
		if err != nil {
			return nil, err
		}
		if location == nil {
			return nil, &ledger.NotFoundError{Kind: "location", Ref: string(*locationID)}
		}
	}

	if date.IsZero() {
		date = e.recorder.Clock().Now()
	}
	record := ledger.PurchaseRecord{
		ID:           ledger.NewTransactionID(),
		ProductID:    productID,
		LocationID:   locationID,
		Quantity:     quantity,
		PurchaseDate: date,
		Notes:        notes,
	}

	movement := ledger.Movement{
		ProductID:         productID,
		LocationID:        locationID,
		QuantityChange:    quantity,
		Type:              ledger.MovementPurchase,
		OccurredAt:        date,
		SourceTransaction: record.ID,
		Notes:             notes,
	}

	err = e.recorder.Record(ctx, []ledger.Movement{movement}, func(s ledger.Store) error {
		return s.InsertPurchase(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
