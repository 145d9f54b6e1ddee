package inventory_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/nikkanikki/inventory-engine/bom"
	"github.com/nikkanikki/inventory-engine/ledger"
	"github.com/nikkanikki/inventory-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) (*sqlite.Store, *ledger.Recorder) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, ledger.NewRecorder(store)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func saveProduct(t *testing.T, s ledger.Store, id ledger.ProductID, name string, stage ledger.Stage) {
	t.Helper()
	require.NoError(t, s.SaveProduct(context.Background(), ledger.Product{
		ID: id, Name: name, Stage: stage,
	}))
}

func saveLocation(t *testing.T, s ledger.Store, id ledger.LocationID, name string) {
	t.Helper()
	require.NoError(t, s.SaveLocation(context.Background(), ledger.Location{ID: id, Name: name}))
}

// stockUp applies an opening purchase so stock arrives through the recorder,
// the same way it does in production use.
func stockUp(t *testing.T, recorder *ledger.Recorder, productID ledger.ProductID, locationID *ledger.LocationID, qty int64) {
	t.Helper()
	require.NoError(t, recorder.Apply(context.Background(), []ledger.Movement{{
		ProductID:         productID,
		LocationID:        locationID,
		QuantityChange:    qty,
		Type:              ledger.MovementPurchase,
		OccurredAt:        time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		SourceTransaction: ledger.TransactionID("tx-opening-" + string(productID)),
	}}))
}

func productQty(t *testing.T, s ledger.Store, id ledger.ProductID) int64 {
	t.Helper()
	p, err := s.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

func locationQty(t *testing.T, s ledger.Store, productID ledger.ProductID, locationID ledger.LocationID) int64 {
	t.Helper()
	qty, err := s.GetLocationStock(context.Background(), productID, locationID)
	require.NoError(t, err)
	return qty
}

func giftSetRegistry(t *testing.T) *bom.Registry {
	t.Helper()
	registry, err := bom.New([]bom.Process{{
		Name: "gift_set_assembly",
		Inputs: []bom.Input{
			{Product: "Soap", Ratio: 1},
			{Product: "Shampoo", Ratio: 1},
			{Product: "Lotion", Ratio: 1},
			{Product: "Powder", Ratio: 1},
			{Product: "Gift Box Cardboard", Ratio: 1},
			{Product: "Empty Thermacol", Ratio: 1},
		},
		Output:      "Gift Set",
		OutputRatio: 1,
	}})
	require.NoError(t, err)
	return registry
}

// =============================================================================
// FAKE CUSTOMER LEDGER
// =============================================================================

// fakeCustomerLedger records notifications for assertion.
type fakeCustomerLedger struct {
	mu        sync.Mutex
	committed []customerEvent
	reversed  []customerEvent
	fail      error
}

type customerEvent struct {
	Buyer  string
	SaleID ledger.TransactionID
	Amount decimal.Decimal
}

func (f *fakeCustomerLedger) SaleCommitted(_ context.Context, buyer string, saleID ledger.TransactionID, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.committed = append(f.committed, customerEvent{buyer, saleID, amount})
	return nil
}

func (f *fakeCustomerLedger) SaleReversed(_ context.Context, buyer string, saleID ledger.TransactionID, amount decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.reversed = append(f.reversed, customerEvent{buyer, saleID, amount})
	return nil
}
