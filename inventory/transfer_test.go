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

func newTransferFixture(t *testing.T) (*inventory.TransferEngine, ledger.TxStore) {
	store, recorder := newTestStore(t)
	engine := inventory.NewTransferEngine(store, recorder)

	saveProduct(t, store, "prod-soap", "Soap", ledger.StageReady)
	saveLocation(t, store, "loc-a", "Warehouse A")
	saveLocation(t, store, "loc-b", "Warehouse B")

	locA := ledger.LocationID("loc-a")
	locB := ledger.LocationID("loc-b")
	stockUp(t, recorder, "prod-soap", &locA, 50)
	stockUp(t, recorder, "prod-soap", &locB, 5)

	return engine, store
}

func TestTransfer_MovesStockBetweenLocations(t *testing.T) {
	// GIVEN: 50 soap at A and 5 at B
	// WHEN: Transferring 20 from A to B
	// THEN: A=30, B=25, and the aggregate is unchanged

	engine, store := newTransferFixture(t)
	ctx := context.Background()

	transfer, err := engine.RecordTransfer(ctx, "prod-soap", "loc-a", "loc-b", 20,
		time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, transfer)

	assert.Equal(t, int64(30), locationQty(t, store, "prod-soap", "loc-a"))
	assert.Equal(t, int64(25), locationQty(t, store, "prod-soap", "loc-b"))
	assert.Equal(t, int64(55), productQty(t, store, "prod-soap"), "aggregate unchanged")

	movements, err := store.MovementsByTransaction(ctx, transfer.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)

	var sum int64
	for _, m := range movements {
		assert.Equal(t, ledger.MovementTransfer, m.Type)
		sum += m.QuantityChange
	}
	assert.Zero(t, sum, "transfer movements must sum to zero")
}

func TestTransfer_InsufficientSourceStock(t *testing.T) {
	// GIVEN: Only 5 soap at B
	// WHEN: Transferring 20 from B to A
	// THEN: Rejected with the per-location shortfall; nothing changed

	engine, store := newTransferFixture(t)

	_, err := engine.RecordTransfer(context.Background(), "prod-soap", "loc-b", "loc-a", 20, time.Time{})
	require.Error(t, err)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 1)
	assert.Equal(t, int64(5), stockErr.Shortfalls[0].Available)
	assert.Equal(t, "Warehouse B", stockErr.Shortfalls[0].Location)

	assert.Equal(t, int64(50), locationQty(t, store, "prod-soap", "loc-a"))
	assert.Equal(t, int64(5), locationQty(t, store, "prod-soap", "loc-b"))
}

func TestTransfer_SameLocationRejected(t *testing.T) {
	engine, _ := newTransferFixture(t)
	_, err := engine.RecordTransfer(context.Background(), "prod-soap", "loc-a", "loc-a", 5, time.Time{})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestTransfer_NonPositiveQuantity(t *testing.T) {
	engine, _ := newTransferFixture(t)
	for _, qty := range []int64{0, -1} {
		_, err := engine.RecordTransfer(context.Background(), "prod-soap", "loc-a", "loc-b", qty, time.Time{})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}
}

func TestTransfer_UnknownReferents(t *testing.T) {
	engine, _ := newTransferFixture(t)
	ctx := context.Background()

	_, err := engine.RecordTransfer(ctx, "prod-nope", "loc-a", "loc-b", 1, time.Time{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = engine.RecordTransfer(ctx, "prod-soap", "loc-nope", "loc-b", 1, time.Time{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = engine.RecordTransfer(ctx, "prod-soap", "loc-a", "loc-nope", 1, time.Time{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
