/*
history.go - Read-only movement history reconstruction

PURPOSE:
  Produces a time-ordered, per-product (optionally per-location) ledger view.
  Purchases, transfers, sales, and wastages are read straight from their
  stored movement rows. Production is different: its per-product effect is
  re-derived from the BOM registry, because the production header records
  only the process and run quantity.

CURRENT-REGISTRY CAVEAT:
  Synthesis consults the registry as it is configured NOW. If a recipe
  changed after historical runs, reconstructed history misattributes inputs
  and outputs for those runs. Accepted approximation; recorded in DESIGN.md.

NO RUNNING BALANCE:
  Nothing here is persisted. The view is recomputed on every read and may
  observe a bounded-staleness snapshot, which is fine for this domain.

SEE ALSO:
  - bom/registry.go: The recipe catalogue synthesis consults
  - store.go: MovementsByProduct / ListProductions
*/
package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/nikkanikki/inventory-engine/bom"
)

// =============================================================================
// HISTORY RECONSTRUCTOR
// =============================================================================

// History reconstructs per-product movement views. Read-only.
type History struct {
	store    Store
	registry *bom.Registry
}

// NewHistory creates a reconstructor over the given store and registry.
func NewHistory(store Store, registry *bom.Registry) *History {
	return &History{store: store, registry: registry}
}

// ForProduct returns the movement history of a product, newest first, as a
// finite restartable sequence. A non-nil location restricts the view to that
// location; production effects are location-agnostic and appear only in the
// unfiltered view.
func (h *History) ForProduct(ctx context.Context, productID ProductID, locationID *LocationID) (*Sequence, error) {
	product, err := h.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &NotFoundError{Kind: "product", Ref: string(productID)}
	}

	movements, err := h.store.MovementsByProduct(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}

	var views []MovementView
	for _, m := range movements {
		// Production rows are replaced by registry synthesis below; keeping
		// both would double-count the run.
		if m.Type == MovementProduction {
			continue
		}
		views = append(views, MovementView{
			ProductID:         m.ProductID,
			LocationID:        m.LocationID,
			QuantityChange:    m.QuantityChange,
			Type:              m.Type,
			OccurredAt:        m.OccurredAt,
			SourceTransaction: m.SourceTransaction,
			Notes:             m.Notes,
		})
	}

	if locationID == nil {
		synthesized, err := h.synthesizeProduction(ctx, productID, product.Name)
		if err != nil {
			return nil, err
		}
		views = append(views, synthesized...)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].OccurredAt.After(views[j].OccurredAt)
	})
	return &Sequence{entries: views}, nil
}

// synthesizeProduction derives the product's signed effect of every
// non-void production run from the current registry.
func (h *History) synthesizeProduction(ctx context.Context, productID ProductID, productName string) ([]MovementView, error) {
	records, err := h.store.ListProductions(ctx)
	if err != nil {
		return nil, err
	}

	var views []MovementView
	for _, rec := range records {
		if rec.Void {
			// Net effect is zero; the run and its compensation cancel out.
			continue
		}
		process, ok := h.registry.Process(rec.ProcessName)
		if !ok {
			// Recipe removed from the registry since the run happened.
			continue
		}

		var delta int64
		if ratio, consumed := process.ConsumesProduct(productName); consumed {
			delta = -int64(ratio * float64(rec.Quantity))
		}
		if process.Output == productName {
			delta += process.Produced(rec.Quantity)
		}
		if delta == 0 {
			continue
		}

		views = append(views, MovementView{
			ProductID:         productID,
			QuantityChange:    delta,
			Type:              MovementProduction,
			OccurredAt:        rec.ProductionDate,
			SourceTransaction: rec.ID,
			Synthesized:       true,
			Notes:             fmt.Sprintf("production run %s x%d", rec.ProcessName, rec.Quantity),
		})
	}
	return views, nil
}

// =============================================================================
// SEQUENCE - Finite, restartable movement view iterator
// =============================================================================

// Sequence walks a reconstructed history. Restartable via Reset.
type Sequence struct {
	entries []MovementView
	pos     int
}

// Next returns the next view and whether one was available.
func (s *Sequence) Next() (MovementView, bool) {
	if s.pos >= len(s.entries) {
		return MovementView{}, false
	}
	v := s.entries[s.pos]
	s.pos++
	return v, true
}

// Reset rewinds the sequence to the beginning.
func (s *Sequence) Reset() { s.pos = 0 }

// Len returns the number of entries in the sequence.
func (s *Sequence) Len() int { return len(s.entries) }

// Collect drains the remaining entries into a slice.
func (s *Sequence) Collect() []MovementView {
	out := make([]MovementView, 0, len(s.entries)-s.pos)
	for {
		v, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}
