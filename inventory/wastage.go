/*
wastage.go - Wastage engine

PURPOSE:
  Removes damaged or expired stock. One negative movement, no compensating
  product produced. With a location the sufficiency check is per-location;
  without one it mirrors production's location-agnostic aggregate check.
*/
package inventory

import (
	"context"
	"time"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// WASTAGE ENGINE
// =============================================================================

// WastageEngine validates and commits stock write-offs.
type WastageEngine struct {
	store    ledger.TxStore
	recorder *ledger.Recorder
}

func NewWastageEngine(store ledger.TxStore, recorder *ledger.Recorder) *WastageEngine {
	return &WastageEngine{store: store, recorder: recorder}
}

// RecordWastage writes off quantity units of a product, at a specific
// location when one is given.
func (e *WastageEngine) RecordWastage(ctx context.Context, productID ledger.ProductID, locationID *ledger.LocationID, quantity int64, date time.Time, reason string) (*ledger.WastageRecord, error) {
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
		available, err := e.store.GetLocationStock(ctx, productID, *locationID)
		if err != nil {
			return nil, err
		}
		if quantity > available {
			return nil, &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
				ProductID:  product.ID,
				Product:    product.Name,
				Stage:      product.Stage,
				LocationID: locationID,
				Location:   location.Name,
				Required:   quantity,
				Available:  available,
			}}}
		}
	} else if quantity > product.Quantity {
		return nil, &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
			ProductID: product.ID,
			Product:   product.Name,
			Stage:     product.Stage,
			Required:  quantity,
			Available: product.Quantity,
		}}}
	}

	if date.IsZero() {
		date = e.recorder.Clock().Now()
	}
	record := ledger.WastageRecord{
		ID:          ledger.NewTransactionID(),
		ProductID:   productID,
		LocationID:  locationID,
		Quantity:    quantity,
		WastageDate: date,
		Reason:      reason,
	}

	movement := ledger.Movement{
		ProductID:         productID,
		LocationID:        locationID,
		QuantityChange:    -quantity,
		Type:              ledger.MovementWastage,
		OccurredAt:        date,
		SourceTransaction: record.ID,
		Notes:             reason,
	}

	err = e.recorder.Record(ctx, []ledger.Movement{movement}, func(s ledger.Store) error {
		return s.InsertWastage(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
