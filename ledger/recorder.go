/*
recorder.go - The Movement Recorder, sole mutator of stock quantities

PURPOSE:
  Every quantity change in the system goes through the Recorder. The engines
  (production, sale, transfer, wastage, purchase, reversal) validate their
  inputs, build a batch of movements, and hand the batch here. The Recorder
  applies the whole batch atomically: every location stock and aggregate
  update commits together or none do.

CRITICAL INVARIANTS:
  1. ATOMIC: A batch is all-or-nothing. No partial application, ever.
  2. NEVER NEGATIVE: Any update that would drive a quantity below zero
     aborts the whole batch.
  3. APPEND-ONLY: Movements are written once and never touched again.

WHY A SINGLE CHOKE POINT?
  - One place enforces the never-negative and aggregate invariants
  - One place pairs stock mutation with the audit trail entry
  - Reversal can compensate any transaction because every effect it had
    went through here and left a movement row

EXAMPLE FLOW (sale of 3 soaps from warehouse A):
  1. Sale engine checks stock, prices the bill
  2. Builds movement {soap, A, -3, sale, sale-id}
  3. recorder.Record(ctx, movements, insertHeader)
  4. Inside one transaction: header + items inserted, stock adjusted,
     movement appended

SEE ALSO:
  - store.go: The TxStore the Recorder drives
  - inventory/: The engines that build batches
*/
package ledger

import (
	"context"
	"fmt"
)

// =============================================================================
// RECORDER - Atomic batch application
// =============================================================================

// Recorder is the single component allowed to mutate stock quantities.
// All writes happen inside one store transaction.
type Recorder struct {
	store TxStore
	clock Clock
}

// NewRecorder creates a Recorder over the given transactional store.
func NewRecorder(store TxStore) *Recorder {
	return &Recorder{store: store, clock: SystemClock{}}
}

// NewRecorderWithClock creates a Recorder with an injectable clock (tests).
func NewRecorderWithClock(store TxStore, clock Clock) *Recorder {
	return &Recorder{store: store, clock: clock}
}

// Apply applies a batch of movements atomically. Rejects the whole batch if
// any update would drive a LocationStock or Product quantity negative.
func (r *Recorder) Apply(ctx context.Context, movements []Movement) error {
	return r.Record(ctx, movements, nil)
}

// Record atomically persists a transaction header (via persist) together
// with its movement batch and all quantity updates. persist may be nil for
// header-less batches. On any failure nothing is recorded.
func (r *Recorder) Record(ctx context.Context, movements []Movement, persist func(Store) error) error {
	if err := r.validate(movements); err != nil {
		return err
	}

	return r.store.WithTx(ctx, func(s Store) error {
		if persist != nil {
			if err := persist(s); err != nil {
				return err
			}
		}
		for _, m := range movements {
			if err := r.applyOne(ctx, s, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Recorder) validate(movements []Movement) error {
	for i, m := range movements {
		if m.ProductID == "" {
			return &ValidationError{Field: fmt.Sprintf("movements[%d].product_id", i), Message: "required"}
		}
		if m.QuantityChange == 0 {
			return &ValidationError{Field: fmt.Sprintf("movements[%d].quantity_change", i), Message: "must be non-zero"}
		}
		if !ValidMovementType(m.Type) {
			return &ValidationError{Field: fmt.Sprintf("movements[%d].movement_type", i), Message: fmt.Sprintf("unknown type %q", m.Type)}
		}
		if m.SourceTransaction == "" {
			return &ValidationError{Field: fmt.Sprintf("movements[%d].source_transaction_id", i), Message: "required"}
		}
	}
	return nil
}

// applyOne mutates stock for a single movement and appends its ledger row.
// Location stock first: a per-location shortage is the more precise error.
func (r *Recorder) applyOne(ctx context.Context, s Store, m Movement) error {
	if m.LocationID != nil {
		if err := s.AdjustLocationStock(ctx, m.ProductID, *m.LocationID, m.QuantityChange); err != nil {
			return err
		}
	}
	if err := s.AdjustProductQuantity(ctx, m.ProductID, m.QuantityChange); err != nil {
		return err
	}

	if m.ID == "" {
		m.ID = NewMovementID()
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = r.clock.Now()
	}
	return s.AppendMovement(ctx, m)
}

// Clock exposes the Recorder's time source so engines stamp transaction
// dates from the same clock.
func (r *Recorder) Clock() Clock { return r.clock }
