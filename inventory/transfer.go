/*
transfer.go - Transfer engine

PURPOSE:
  Moves quantity between two locations. The two movements it records share
  one transfer id and sum to zero, so the product aggregate is unaffected.

SEE ALSO:
  - ledger/recorder.go: Applies both movements atomically
*/
package inventory

import (
	"context"
	"time"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// TRANSFER ENGINE
// =============================================================================

// TransferEngine validates and commits dual-location movements.
type TransferEngine struct {
	store    ledger.TxStore
	recorder *ledger.Recorder
}

func NewTransferEngine(store ledger.TxStore, recorder *ledger.Recorder) *TransferEngine {
	return &TransferEngine{store: store, recorder: recorder}
}

// RecordTransfer moves quantity units of a product from one location to
// another on the given date.
func (e *TransferEngine) RecordTransfer(ctx context.Context, productID ledger.ProductID, from, to ledger.LocationID, quantity int64, date time.Time) (*ledger.Transfer, error) {
	if quantity <= 0 {
		return nil, &ledger.ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if from == to {
		return nil, &ledger.ValidationError{Field: "to_location_id", Message: "must differ from from_location_id"}
	}

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &ledger.NotFoundError{Kind: "product", Ref: string(productID)}
	}
	fromLoc, err := e.store.GetLocation(ctx, from)
	if err != nil {
		return nil, err
	}
	if fromLoc == nil {
		return nil, &ledger.NotFoundError{Kind: "location", Ref: string(from)}
	}
	toLoc, err := e.store.GetLocation(ctx, to)
	if err != nil {
		return nil, err
	}
	if toLoc == nil {
		return nil, &ledger.NotFoundError{Kind: "location", Ref: string(to)}
	}

	available, err := e.store.GetLocationStock(ctx, productID, from)
	if err != nil {
		return nil, err
	}
	if quantity > available {
		loc := from
		return nil, &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
			ProductID:  product.ID,
			Product:    product.Name,
			Stage:      product.Stage,
			LocationID: &loc,
			Location:   fromLoc.Name,
			Required:   quantity,
			Available:  available,
		}}}
	}

	if date.IsZero() {
		date = e.recorder.Clock().Now()
	}
	transfer := ledger.Transfer{
		ID:             ledger.NewTransactionID(),
		ProductID:      productID,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       quantity,
		TransferDate:   date,
	}

	fromCopy, toCopy := from, to
	movements := []ledger.Movement{
		{
			ProductID:         productID,
			LocationID:        &fromCopy,
			QuantityChange:    -quantity,
			Type:              ledger.MovementTransfer,
			OccurredAt:        date,
			SourceTransaction: transfer.ID,
		},
		{
			ProductID:         productID,
			LocationID:        &toCopy,
			QuantityChange:    quantity,
			Type:              ledger.MovementTransfer,
			OccurredAt:        date,
			SourceTransaction: transfer.ID,
		},
	}

	err = e.recorder.Record(ctx, movements, func(s ledger.Store) error {
		return s.InsertTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}
