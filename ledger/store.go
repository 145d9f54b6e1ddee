/*
store.go - Persistence interfaces for the inventory ledger

PURPOSE:
  Defines the interface between the engines and the database. The Store
  maintains append-only semantics on movements and transaction headers.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Catalogue, stock, movement, and header persistence
  TxStore: Transactional operations (atomic multi-table writes)

APPEND-ONLY CONTRACT:
  - Movements have AppendMovement() and reads. No update, no delete.
  - Transaction headers are inserted once; MarkVoid() is the only
    permitted mutation afterwards.
  - AdjustProductQuantity/AdjustLocationStock are the only quantity
    mutations, and only the Recorder calls them.

ATOMIC BATCHES:
  WithTx() ensures all-or-nothing semantics. When a sale commits (header +
  items + one movement per item + stock decrements), either everything is
  written or nothing is. The whole reversal contract hinges on this.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - recorder.go: Batch application through these interfaces
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Catalogue, stock, movements, headers
// =============================================================================

// Store handles persistence for the ledger. Movements are append-only;
// headers only ever gain a void flag; quantities are mutated exclusively
// through the Adjust methods (called by the Recorder).
type Store interface {
	// --- catalogue ---

	SaveProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id ProductID) (*Product, error)
	GetProductByName(ctx context.Context, name string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	SaveLocation(ctx context.Context, l Location) error
	GetLocation(ctx context.Context, id LocationID) (*Location, error)
	ListLocations(ctx context.Context) ([]Location, error)

	// --- stock ---

	// GetLocationStock returns the current quantity for (product, location).
	// Missing rows read as zero.
	GetLocationStock(ctx context.Context, productID ProductID, locationID LocationID) (int64, error)

	// AdjustProductQuantity applies a signed delta to the product aggregate.
	// Fails with InsufficientStockError if the result would be negative,
	// NotFoundError if the product does not exist.
	AdjustProductQuantity(ctx context.Context, productID ProductID, delta int64) error

	// AdjustLocationStock applies a signed delta to one stock cell, creating
	// it when needed. Fails with InsufficientStockError if the result would
	// be negative.
	AdjustLocationStock(ctx context.Context, productID ProductID, locationID LocationID, delta int64) error

	// --- movements (append-only) ---

	AppendMovement(ctx context.Context, m Movement) error
	MovementsByTransaction(ctx context.Context, txID TransactionID) ([]Movement, error)
	// MovementsByProduct returns movements for a product, newest first.
	// A non-nil location filters to that location's movements.
	MovementsByProduct(ctx context.Context, productID ProductID, locationID *LocationID) ([]Movement, error)

	// --- transaction headers ---

	InsertSale(ctx context.Context, s SaleTransaction) error
	GetSale(ctx context.Context, id TransactionID) (*SaleTransaction, error)
	ListSales(ctx context.Context) ([]SaleTransaction, error)

	InsertTransfer(ctx context.Context, t Transfer) error
	GetTransfer(ctx context.Context, id TransactionID) (*Transfer, error)
	ListTransfers(ctx context.Context) ([]Transfer, error)

	InsertProduction(ctx context.Context, p ProductionRecord) error
	GetProduction(ctx context.Context, id TransactionID) (*ProductionRecord, error)
	ListProductions(ctx context.Context) ([]ProductionRecord, error)

	InsertWastage(ctx context.Context, w WastageRecord) error
	GetWastage(ctx context.Context, id TransactionID) (*WastageRecord, error)
	ListWastages(ctx context.Context) ([]WastageRecord, error)

	InsertPurchase(ctx context.Context, p PurchaseRecord) error
	GetPurchase(ctx context.Context, id TransactionID) (*PurchaseRecord, error)
	ListPurchases(ctx context.Context) ([]PurchaseRecord, error)

	// MarkVoid sets the void flag on a transaction header. The only header
	// mutation that exists.
	MarkVoid(ctx context.Context, kind TransactionKind, id TransactionID) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// Clock supplies timestamps for movements. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used in production.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
