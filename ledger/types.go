/*
Package ledger provides the core inventory ledger and transaction engine.

PURPOSE:
  This package contains the data model and algorithms that keep per-location
  and aggregate stock consistent across the five movement types: purchase,
  production, transfer, sale, and wastage. Every stock change flows through
  the Movement Recorder as an immutable ledger entry; current quantities are
  the only continuously mutated state, and only the Recorder mutates them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product/Location: the referents of stock, with type-safe identifiers
  - Movement: an immutable, signed quantity change against (product, location)
  - Transaction headers: Sale, Transfer, Production, Wastage, Purchase records
  - MovementView: a reconstructed history entry (real or synthesized)

DESIGN PRINCIPLES:
  1. Immutability: Movements are never modified, only compensated
  2. Precision: Money uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing product/location IDs
  4. Auditability: Every movement carries its causing transaction id

USAGE:
  mv := ledger.Movement{
      ProductID:         "prod-soap",
      LocationID:        &warehouseA,
      QuantityChange:    -5,
      Type:              ledger.MovementSale,
      SourceTransaction: saleID,
  }

SEE ALSO:
  - recorder.go: The sole mutator of stock quantities
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type LocationID string
type MovementID string
type TransactionID string

// =============================================================================
// PRODUCT - A tracked good at some production stage
// =============================================================================

// Stage is where a product sits in the production pipeline.
type Stage string

const (
	StageRaw          Stage = "raw"
	StageIntermediate Stage = "intermediate"
	StageReady        Stage = "ready"
	StageFinished     Stage = "finished"
)

// Product carries the derived aggregate quantity. The aggregate is only
// mutated by the Recorder, together with the location stock rows it covers.
type Product struct {
	ID       ProductID
	Name     string
	Stage    Stage
	Quantity int64
	MinStock *int64 // low-stock threshold; nil = no alarm
}

// BelowMinStock reports whether the aggregate has fallen to the threshold.
func (p Product) BelowMinStock() bool {
	return p.MinStock != nil && p.Quantity <= *p.MinStock
}

// Location is a physical place where stock is held.
type Location struct {
	ID   LocationID
	Name string
}

// LocationStock is one (location, product) quantity cell.
// Never negative after a committed operation.
type LocationStock struct {
	LocationID LocationID
	ProductID  ProductID
	Quantity   int64
}

// =============================================================================
// MOVEMENT - Append-only ledger entry
// =============================================================================

type MovementType string

const (
	MovementPurchase   MovementType = "purchase"
	MovementProduction MovementType = "production"
	MovementTransfer   MovementType = "transfer"
	MovementSale       MovementType = "sale"
	MovementWastage    MovementType = "wastage"
)

// ValidMovementType reports whether t is one of the five movement types.
func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementPurchase, MovementProduction, MovementTransfer, MovementSale, MovementWastage:
		return true
	}
	return false
}

// Movement is one signed quantity change against a (product, location) pair,
// tagged with its causing transaction. LocationID is nil for location-agnostic
// movements (production, aggregate wastage). Never mutated after creation.
type Movement struct {
	ID                MovementID
	ProductID         ProductID
	LocationID        *LocationID
	QuantityChange    int64
	Type              MovementType
	OccurredAt        time.Time
	SourceTransaction TransactionID
	Notes             string
}

// =============================================================================
// TRANSACTION HEADERS - Created once, only ever gain a void flag
// =============================================================================

// TransactionKind names a header table. It doubles as the "type" argument of
// the reversal operation.
type TransactionKind string

const (
	KindSale       TransactionKind = "sale"
	KindTransfer   TransactionKind = "transfer"
	KindProduction TransactionKind = "production"
	KindWastage    TransactionKind = "wastage"
	KindPurchase   TransactionKind = "purchase"
)

// ValidTransactionKind reports whether k names a known header table.
func ValidTransactionKind(k TransactionKind) bool {
	switch k {
	case KindSale, KindTransfer, KindProduction, KindWastage, KindPurchase:
		return true
	}
	return false
}

// SaleTransaction is the sale header. Items and the per-item movements are
// committed together with it as one unit.
type SaleTransaction struct {
	ID                 TransactionID
	InvoiceNumber      string
	Buyer              string
	SaleDate           time.Time
	Items              []SaleItem
	BillDiscountPct    decimal.Decimal
	BillDiscountAmount decimal.Decimal
	TotalAmount        decimal.Decimal
	FinalAmount        decimal.Decimal
	PaymentReceived    decimal.Decimal
	CreditSale         bool
	Void               bool
}

// SaleItem is one sale line. Pricing fields are filled by the pricing engine
// before the sale commits.
type SaleItem struct {
	ProductID      ProductID
	LocationID     LocationID
	Quantity       int64
	PricePerUnit   decimal.Decimal
	TradeScheme    string // "buy+free", empty for none
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalPrice     decimal.Decimal
	FinalPrice     decimal.Decimal
}

// Transfer moves quantity between two locations. The two movements it causes
// sum to zero; the product aggregate is unaffected.
type Transfer struct {
	ID             TransactionID
	ProductID      ProductID
	FromLocationID LocationID
	ToLocationID   LocationID
	Quantity       int64
	TransferDate   time.Time
	Void           bool
}

// ProductionRecord is the header of one BOM-driven transformation run.
// Per-product effects are recorded as movements and, for history views,
// re-derived from the registry (see history.go).
type ProductionRecord struct {
	ID             TransactionID
	ProcessName    string
	Quantity       int64
	ProductionDate time.Time
	Void           bool
}

// WastageRecord removes stock with no compensating product produced.
// LocationID is nil when wastage is taken against the aggregate.
type WastageRecord struct {
	ID          TransactionID
	ProductID   ProductID
	LocationID  *LocationID
	Quantity    int64
	WastageDate time.Time
	Reason      string
	Void        bool
}

// PurchaseRecord adds stock from outside the system.
type PurchaseRecord struct {
	ID           TransactionID
	ProductID    ProductID
	LocationID   *LocationID
	Quantity     int64
	PurchaseDate time.Time
	Notes        string
	Void         bool
}

// =============================================================================
// MOVEMENT VIEW - Reconstructed history entry
// =============================================================================

// MovementView is one entry of the reconstructed, time-ordered ledger view.
// Synthesized entries are production effects derived from the BOM registry
// rather than stored movement rows.
type MovementView struct {
	ProductID         ProductID
	LocationID        *LocationID
	QuantityChange    int64
	Type              MovementType
	OccurredAt        time.Time
	SourceTransaction TransactionID
	Synthesized       bool
	Notes             string
}
