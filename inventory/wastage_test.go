package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikkanikki/inventory-engine/inventory"
	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// WASTAGE TESTS
// =============================================================================

func newWastageFixture(t *testing.T) (*inventory.WastageEngine, ledger.TxStore) {
	store, recorder := newTestStore(t)
	engine := inventory.NewWastageEngine(store, recorder)

	saveProduct(t, store, "prod-soap", "Soap", ledger.StageReady)
	saveLocation(t, store, "loc-a", "Warehouse A")
	locA := ledger.LocationID("loc-a")
	stockUp(t, recorder, "prod-soap", &locA, 20)

	return engine, store
}

func TestWastage_AtLocation(t *testing.T) {
	// GIVEN: 20 soap at warehouse A
	// WHEN: Writing off 8 with a reason
	// THEN: Location and aggregate both drop; the reason rides the movement

	engine, store := newWastageFixture(t)
	ctx := context.Background()
	locA := ledger.LocationID("loc-a")

	record, err := engine.RecordWastage(ctx, "prod-soap", &locA, 8,
		time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC), "water damage")
	require.NoError(t, err)

	assert.Equal(t, int64(12), locationQty(t, store, "prod-soap", "loc-a"))
	assert.Equal(t, int64(12), productQty(t, store, "prod-soap"))

	movements, err := store.MovementsByTransaction(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, int64(-8), movements[0].QuantityChange)
	assert.Equal(t, "water damage", movements[0].Notes)
}

func TestWastage_AggregateOnly(t *testing.T) {
	// GIVEN: Wastage with no location
	// WHEN: Writing off 5
	// THEN: Only the aggregate drops; location stock is untouched

	engine, store := newWastageFixture(t)

	_, err := engine.RecordWastage(context.Background(), "prod-soap", nil, 5, time.Time{}, "expired batch")
	require.NoError(t, err)

	assert.Equal(t, int64(15), productQty(t, store, "prod-soap"))
	assert.Equal(t, int64(20), locationQty(t, store, "prod-soap", "loc-a"))
}

func TestWastage_ExceedsLocationStock(t *testing.T) {
	engine, store := newWastageFixture(t)
	locA := ledger.LocationID("loc-a")

	_, err := engine.RecordWastage(context.Background(), "prod-soap", &locA, 25, time.Time{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
	assert.Equal(t, int64(20), productQty(t, store, "prod-soap"))
}

func TestWastage_ExceedsAggregate(t *testing.T) {
	engine, _ := newWastageFixture(t)
	_, err := engine.RecordWastage(context.Background(), "prod-soap", nil, 25, time.Time{}, "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
}

func TestWastage_Validation(t *testing.T) {
	engine, _ := newWastageFixture(t)
	ctx := context.Background()

	_, err := engine.RecordWastage(ctx, "prod-soap", nil, 0, time.Time{}, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = engine.RecordWastage(ctx, "prod-nope", nil, 1, time.Time{}, "")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// PURCHASE TESTS
// =============================================================================

func TestPurchase_AtLocation(t *testing.T) {
	// GIVEN: An empty catalogue entry and a location
	// WHEN: Purchasing 100 into the location
	// THEN: Location and aggregate both rise; the header persists

	store, recorder := newTestStore(t)
	engine := inventory.NewPurchaseEngine(store, recorder)
	ctx := context.Background()

	saveProduct(t, store, "prod-giftbox", "Gift Box Cardboard", ledger.StageRaw)
	saveLocation(t, store, "loc-a", "Warehouse A")
	locA := ledger.LocationID("loc-a")

	record, err := engine.RecordPurchase(ctx, "prod-giftbox", &locA, 100,
		time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC), "supplier: Karachi Packaging")
	require.NoError(t, err)

	assert.Equal(t, int64(100), productQty(t, store, "prod-giftbox"))
	assert.Equal(t, int64(100), locationQty(t, store, "prod-giftbox", "loc-a"))

	stored, err := store.GetPurchase(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "supplier: Karachi Packaging", stored.Notes)
}

func TestPurchase_AggregateOnly(t *testing.T) {
	store, recorder := newTestStore(t)
	engine := inventory.NewPurchaseEngine(store, recorder)

	saveProduct(t, store, "prod-giftbox", "Gift Box Cardboard", ledger.StageRaw)

	_, err := engine.RecordPurchase(context.Background(), "prod-giftbox", nil, 40, time.Time{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(40), productQty(t, store, "prod-giftbox"))
}

func TestPurchase_Validation(t *testing.T) {
	store, recorder := newTestStore(t)
	engine := inventory.NewPurchaseEngine(store, recorder)
	ctx := context.Background()

	saveProduct(t, store, "prod-giftbox", "Gift Box Cardboard", ledger.StageRaw)

	_, err := engine.RecordPurchase(ctx, "prod-giftbox", nil, 0, time.Time{}, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = engine.RecordPurchase(ctx, "prod-nope", nil, 1, time.Time{}, "")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	locNope := ledger.LocationID("loc-nope")
	_, err = engine.RecordPurchase(ctx, "prod-giftbox", &locNope, 1, time.Time{}, "")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
