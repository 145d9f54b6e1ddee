/*
Package inventory provides the transaction engines: production, sale,
transfer, wastage, purchase, and the reversal coordinator.

PURPOSE:
  Each engine validates its input, builds a batch of movements, and commits
  the batch together with its transaction header through the Movement
  Recorder. Engines never touch quantities directly - the Recorder is the
  single choke point.

CONTROL FLOW:
  UI/forms (external) -> engine -> validate -> Recorder.Record -> store
  Reversal and history read back the movement trail the engines leave.

ATOMICITY:
  Once validation passes, the commit is all-or-nothing. No retries happen
  inside the engines; retrying a non-idempotent stock mutation risks double
  application, so retry policy belongs to the caller.

SEE ALSO:
  - ledger/recorder.go: Batch application
  - bom/registry.go: Recipes consumed by the production engine
  - pricing/: Sale pricing
*/
package inventory

import (
	"context"
	"time"

	"github.com/nikkanikki/inventory-engine/bom"
	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// PRODUCTION ENGINE - BOM-driven multi-product transformation
// =============================================================================

// ProductionEngine executes staged production runs: consume every BOM input,
// produce the output, atomically.
type ProductionEngine struct {
	store    ledger.TxStore
	recorder *ledger.Recorder
	registry *bom.Registry
}

// NewProductionEngine creates a production engine. The registry is injected,
// never looked up globally.
func NewProductionEngine(store ledger.TxStore, recorder *ledger.Recorder, registry *bom.Registry) *ProductionEngine {
	return &ProductionEngine{store: store, recorder: recorder, registry: registry}
}

// RecordProduction runs a process quantity times on the given date.
//
// Validation is batched: every deficient input is collected before failing,
// so the operator can restock everything needed in one pass. Stock checks
// are against the aggregate - production is location-agnostic.
func (e *ProductionEngine) RecordProduction(ctx context.Context, processName string, quantity int64, date time.Time) (*ledger.ProductionRecord, error) {
	if quantity <= 0 {
		return nil, &ledger.ValidationError{Field: "quantity", Message: "must be positive"}
	}

	process, ok := e.registry.Process(processName)
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "process", Ref: processName}
	}

	if date.IsZero() {
		date = e.recorder.Clock().Now()
	}
	record := ledger.ProductionRecord{
		ID:             ledger.NewTransactionID(),
		ProcessName:    processName,
		Quantity:       quantity,
		ProductionDate: date,
	}

	var movements []ledger.Movement
	var shortfalls []ledger.Shortfall

	for _, input := range process.Inputs {
		product, err := e.store.GetProductByName(ctx, input.Product)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, &ledger.NotFoundError{Kind: "product", Ref: input.Product}
		}

		required := process.Required(input, quantity)
		if product.Quantity < required {
			shortfalls = append(shortfalls, ledger.Shortfall{
				ProductID: product.ID,
				Product:   product.Name,
				Stage:     product.Stage,
				Required:  required,
				Available: product.Quantity,
			})
			continue
		}

		movements = append(movements, ledger.Movement{
			ProductID:         product.ID,
			QuantityChange:    -required,
			Type:              ledger.MovementProduction,
			OccurredAt:        date,
			SourceTransaction: record.ID,
		})
	}

	if len(shortfalls) > 0 {
		return nil, &ledger.InsufficientStockError{Shortfalls: shortfalls}
	}

	output, err := e.store.GetProductByName(ctx, process.Output)
	if err != nil {
		return nil, err
	}
	if output == nil {
		return nil, &ledger.NotFoundError{Kind: "product", Ref: process.Output}
	}
	movements = append(movements, ledger.Movement{
		ProductID:         output.ID,
		QuantityChange:    process.Produced(quantity),
		Type:              ledger.MovementProduction,
		OccurredAt:        date,
		SourceTransaction: record.ID,
	})

	err = e.recorder.Record(ctx, movements, func(s ledger.Store) error {
		return s.InsertProduction(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
