package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikkanikki/inventory-engine/ledger"
	"github.com/nikkanikki/inventory-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTime = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestRecorder(t *testing.T) (*ledger.Recorder, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	return ledger.NewRecorderWithClock(mem, fixedClock{testTime}), mem
}

func seedProduct(t *testing.T, s ledger.Store, id ledger.ProductID, name string, qty int64) {
	t.Helper()
	require.NoError(t, s.SaveProduct(context.Background(), ledger.Product{
		ID: id, Name: name, Stage: ledger.StageReady, Quantity: qty,
	}))
}

func seedLocationStock(t *testing.T, s ledger.Store, productID ledger.ProductID, locationID ledger.LocationID, qty int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveLocation(ctx, ledger.Location{ID: locationID, Name: string(locationID)}))
	require.NoError(t, s.AdjustLocationStock(ctx, productID, locationID, qty))
}

func movement(productID ledger.ProductID, locationID *ledger.LocationID, delta int64, txID ledger.TransactionID) ledger.Movement {
	return ledger.Movement{
		ProductID:         productID,
		LocationID:        locationID,
		QuantityChange:    delta,
		Type:              ledger.MovementPurchase,
		SourceTransaction: txID,
	}
}

// =============================================================================
// BATCH ATOMICITY TESTS
// =============================================================================

func TestRecorder_AppliesBatch(t *testing.T) {
	// GIVEN: A product with stock at one location
	// WHEN: Applying a two-movement batch
	// THEN: Location stock, aggregate, and the movement trail all update

	recorder, mem := newTestRecorder(t)
	ctx := context.Background()
	loc := ledger.LocationID("loc-a")

	seedProduct(t, mem, "prod-1", "Soap", 0)
	require.NoError(t, mem.SaveLocation(ctx, ledger.Location{ID: loc, Name: "A"}))

	err := recorder.Apply(ctx, []ledger.Movement{
		movement("prod-1", &loc, 10, "tx-1"),
		movement("prod-1", &loc, 5, "tx-1"),
	})
	require.NoError(t, err)

	product, err := mem.GetProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), product.Quantity)

	stock, err := mem.GetLocationStock(ctx, "prod-1", loc)
	require.NoError(t, err)
	assert.Equal(t, int64(15), stock)

	movements, err := mem.MovementsByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Len(t, movements, 2)
}

func TestRecorder_RejectsWholeBatchOnShortage(t *testing.T) {
	// GIVEN: A batch whose last movement would drive stock negative
	// WHEN: Applying the batch
	// THEN: Nothing changes - not even the movements that would have passed

	recorder, mem := newTestRecorder(t)
	ctx := context.Background()

	seedProduct(t, mem, "prod-1", "Soap", 10)
	seedProduct(t, mem, "prod-2", "Shampoo", 3)

	err := recorder.Apply(ctx, []ledger.Movement{
		movement("prod-1", nil, -5, "tx-1"),
		movement("prod-2", nil, -5, "tx-1"), // only 3 available
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)

	p1, _ := mem.GetProduct(ctx, "prod-1")
	p2, _ := mem.GetProduct(ctx, "prod-2")
	assert.Equal(t, int64(10), p1.Quantity, "first movement must be rolled back")
	assert.Equal(t, int64(3), p2.Quantity)

	movements, _ := mem.MovementsByTransaction(ctx, "tx-1")
	assert.Empty(t, movements, "no movements from a rejected batch")
}

func TestRecorder_LocationShortageAbortsBatch(t *testing.T) {
	// GIVEN: Aggregate stock sufficient, but the named location short
	// WHEN: Applying a location-scoped negative movement
	// THEN: The per-location check rejects the batch

	recorder, mem := newTestRecorder(t)
	ctx := context.Background()
	loc := ledger.LocationID("loc-a")

	seedProduct(t, mem, "prod-1", "Soap", 100)
	seedLocationStock(t, mem, "prod-1", loc, 2)

	err := recorder.Apply(ctx, []ledger.Movement{movement("prod-1", &loc, -5, "tx-1")})
	require.Error(t, err)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 1)
	assert.Equal(t, int64(5), stockErr.Shortfalls[0].Required)
	assert.Equal(t, int64(2), stockErr.Shortfalls[0].Available)
}

func TestRecorder_PersistFailureRollsBack(t *testing.T) {
	// GIVEN: A header persist function that fails
	// WHEN: Recording the batch
	// THEN: No stock changed and no movements were appended

	recorder, mem := newTestRecorder(t)
	ctx := context.Background()

	seedProduct(t, mem, "prod-1", "Soap", 10)

	boom := assert.AnError
	err := recorder.Record(ctx,
		[]ledger.Movement{movement("prod-1", nil, 5, "tx-1")},
		func(ledger.Store) error { return boom })
	require.ErrorIs(t, err, boom)

	p, _ := mem.GetProduct(ctx, "prod-1")
	assert.Equal(t, int64(10), p.Quantity)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestRecorder_ValidatesMovements(t *testing.T) {
	recorder, mem := newTestRecorder(t)
	ctx := context.Background()
	seedProduct(t, mem, "prod-1", "Soap", 10)

	cases := []struct {
		name string
		m    ledger.Movement
	}{
		{"missing product", ledger.Movement{QuantityChange: 1, Type: ledger.MovementPurchase, SourceTransaction: "tx"}},
		{"zero quantity", ledger.Movement{ProductID: "prod-1", Type: ledger.MovementPurchase, SourceTransaction: "tx"}},
		{"unknown type", ledger.Movement{ProductID: "prod-1", QuantityChange: 1, Type: "teleport", SourceTransaction: "tx"}},
		{"missing source", ledger.Movement{ProductID: "prod-1", QuantityChange: 1, Type: ledger.MovementPurchase}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := recorder.Apply(ctx, []ledger.Movement{c.m})
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}
}

func TestRecorder_FillsIDAndTimestamp(t *testing.T) {
	// GIVEN: A movement without ID or timestamp
	// WHEN: Applying it
	// THEN: The recorder stamps both from its own sources

	recorder, mem := newTestRecorder(t)
	ctx := context.Background()
	seedProduct(t, mem, "prod-1", "Soap", 0)

	require.NoError(t, recorder.Apply(ctx, []ledger.Movement{movement("prod-1", nil, 5, "tx-1")}))

	movements, err := mem.MovementsByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.NotEmpty(t, movements[0].ID)
	assert.Equal(t, testTime, movements[0].OccurredAt)
}

func TestRecorder_UnknownProductRejected(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	err := recorder.Apply(context.Background(), []ledger.Movement{movement("nope", nil, 5, "tx-1")})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
