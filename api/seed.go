/*
seed.go - Demo catalogue loader for testing and demonstrations

PURPOSE:
  Populates the database with a realistic soap-factory catalogue: four
  ready products that box into a gift set, the packaging materials the
  assembly consumes, and two stock locations with opening purchases.

HOW SEEDING WORKS:
 1. Reset database (clear all data)
 2. Create locations
 3. Create products at their production stages
 4. Record opening purchases through the purchase engine, so opening
    stock arrives as real ledger movements rather than direct writes

USAGE VIA API:

	POST /api/seed

NOTE:
  Seeding resets the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler context and error helpers
  - bom.DefaultConfig: The matching process catalogue
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// Resetter is implemented by stores that can wipe all data (dev/demo only).
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// DEMO CATALOGUE
// =============================================================================

var seedLocations = []ledger.Location{
	{ID: "loc-factory", Name: "Factory Floor"},
	{ID: "loc-warehouse", Name: "Main Warehouse"},
}

type seedProduct struct {
	product ledger.Product
	opening int64 // opening purchase into the warehouse
}

func int64Ptr(v int64) *int64 { return &v }

var seedProducts = []seedProduct{
	{ledger.Product{ID: "prod-soap", Name: "Soap", Stage: ledger.StageReady, MinStock: int64Ptr(100)}, 500},
	{ledger.Product{ID: "prod-shampoo", Name: "Shampoo", Stage: ledger.StageReady, MinStock: int64Ptr(100)}, 500},
	{ledger.Product{ID: "prod-lotion", Name: "Lotion", Stage: ledger.StageReady, MinStock: int64Ptr(100)}, 500},
	{ledger.Product{ID: "prod-powder", Name: "Powder", Stage: ledger.StageReady, MinStock: int64Ptr(100)}, 500},
	{ledger.Product{ID: "prod-giftbox", Name: "Gift Box Cardboard", Stage: ledger.StageRaw, MinStock: int64Ptr(50)}, 200},
	{ledger.Product{ID: "prod-thermacol", Name: "Empty Thermacol", Stage: ledger.StageRaw, MinStock: int64Ptr(50)}, 200},
	{ledger.Product{ID: "prod-giftset", Name: "Gift Set", Stage: ledger.StageFinished, MinStock: int64Ptr(20)}, 0},
}

// SeedDemo resets the database and loads the demo catalogue.
// POST /api/seed
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resetter, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Store does not support reset", nil)
		return
	}
	if err := resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	for _, loc := range seedLocations {
		if err := h.Store.SaveLocation(ctx, loc); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed location", err)
			return
		}
	}

	warehouse := seedLocations[1].ID
	openingDate := time.Now().UTC().AddDate(0, 0, -7)

	for _, sp := range seedProducts {
		if err := h.Store.SaveProduct(ctx, sp.product); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed product", err)
			return
		}
		if sp.opening == 0 {
			continue
		}
		loc := warehouse
		_, err := h.Purchases.RecordPurchase(ctx, sp.product.ID, &loc, sp.opening, openingDate, "opening stock")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed opening stock", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "seeded",
		"locations": len(seedLocations),
		"products":  len(seedProducts),
	})
}
