/*
reversal.go - Reversal coordinator

PURPOSE:
  Given any prior transaction, computes and applies the exact compensating
  movements and marks the transaction void. Audit-preserving: nothing is
  deleted; original and compensating movements both remain in the ledger.

STATE MACHINE:
  ACTIVE -> VOID, terminal. A voided transaction cannot be reversed again;
  the AlreadyVoided guard is what prevents double compensation.

ATOMICITY:
  The compensating batch and the void flag commit as one unit. If
  compensation fails, the transaction stays ACTIVE and no quantity changes.

SEE ALSO:
  - ledger/recorder.go: Applies the compensating batch
  - customer.go: Balance reversal for sales
*/
package inventory

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// REVERSAL COORDINATOR
// =============================================================================

// ReversalCoordinator voids transactions by compensating their movements.
type ReversalCoordinator struct {
	store     ledger.TxStore
	recorder  *ledger.Recorder
	customers CustomerLedger
	log       *logrus.Logger
}

func NewReversalCoordinator(store ledger.TxStore, recorder *ledger.Recorder, customers CustomerLedger, log *logrus.Logger) *ReversalCoordinator {
	return &ReversalCoordinator{store: store, recorder: recorder, customers: customers, log: log}
}

// Reverse voids the identified transaction, restoring every affected
// (product, location) quantity to its pre-commit value.
func (c *ReversalCoordinator) Reverse(ctx context.Context, id ledger.TransactionID, kind ledger.TransactionKind) error {
	if !ledger.ValidTransactionKind(kind) {
		return &ledger.ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", kind)}
	}

	void, sale, err := c.headerState(ctx, id, kind)
	if err != nil {
		return err
	}
	if void {
		return &ledger.AlreadyVoidedError{Kind: kind, ID: id}
	}

	movements, err := c.store.MovementsByTransaction(ctx, id)
	if err != nil {
		return err
	}
	if len(movements) == 0 {
		return &ledger.NotFoundError{Kind: "transaction", Ref: string(id)}
	}

	now := c.recorder.Clock().Now()
	compensating := make([]ledger.Movement, len(movements))
	for i, m := range movements {
		compensating[i] = ledger.Movement{
			ProductID:         m.ProductID,
			LocationID:        m.LocationID,
			QuantityChange:    -m.QuantityChange,
			Type:              m.Type,
			OccurredAt:        now,
			SourceTransaction: id,
			Notes:             fmt.Sprintf("reversal of %s %s", kind, id),
		}
	}

	err = c.recorder.Record(ctx, compensating, func(s ledger.Store) error {
		return s.MarkVoid(ctx, kind, id)
	})
	if err != nil {
		return err
	}

	if sale != nil {
		if nerr := c.customers.SaleReversed(ctx, sale.Buyer, sale.ID, sale.FinalAmount); nerr != nil {
			c.log.WithError(nerr).WithField("sale", sale.ID).Warn("customer ledger reversal notification failed")
		}
	}
	return nil
}

// headerState fetches the header's void flag, and the sale header itself
// when the transaction is a sale (for the balance reversal notification).
func (c *ReversalCoordinator) headerState(ctx context.Context, id ledger.TransactionID, kind ledger.TransactionKind) (bool, *ledger.SaleTransaction, error) {
	notFound := &ledger.NotFoundError{Kind: "transaction", Ref: string(id)}

	switch kind {
	case ledger.KindSale:
		s, err := c.store.GetSale(ctx, id)
		if err != nil {
			return false, nil, err
		}
		if s == nil {
			return false, nil, notFound
		}
		return s.Void, s, nil
	case ledger.KindTransfer:
		t, err := c.store.GetTransfer(ctx, id)
		if err != nil {
			return false, nil, err
		}
		if t == nil {
			return false, nil, notFound
		}
		return t.Void, nil, nil
	case ledger.KindProduction:
		p, err := c.store.GetProduction(ctx, id)
		if err != nil {
			return false, nil, err
		}
		if p == nil {
			return false, nil, notFound
		}
		return p.Void, nil, nil
	case ledger.KindWastage:
		w, err := c.store.GetWastage(ctx, id)
		if err != nil {
			return false, nil, err
		}
		if w == nil {
			return false, nil, notFound
		}
		return w.Void, nil, nil
	case ledger.KindPurchase:
		p, err := c.store.GetPurchase(ctx, id)
		if err != nil {
			return false, nil, err
		}
		if p == nil {
			return false, nil, notFound
		}
		return p.Void, nil, nil
	}
	return false, nil, notFound
}
