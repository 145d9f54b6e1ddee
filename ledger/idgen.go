/*
idgen.go - Identifier generation

PURPOSE:
  Collision-resistant identifiers for transactions, movements, and invoice
  numbers. Invoice numbers keep the INV- prefix operators know, but the body
  is a UUID fragment instead of a timestamp: timestamp-derived numbers
  collide under concurrent submission.

SEE ALSO:
  - types.go: The ID types these functions produce
*/
package ledger

import (
	"strings"

	"github.com/google/uuid"
)

// NewTransactionID returns a fresh transaction identifier.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

// NewMovementID returns a fresh movement identifier.
func NewMovementID() MovementID {
	return MovementID(uuid.NewString())
}

// NewInvoiceNumber returns an invoice number of the form INV-XXXXXXXX.
// Uniqueness comes from the UUID, not the wall clock.
func NewInvoiceNumber() string {
	frag := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "INV-" + frag
}
