package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// CUSTOMER LEDGER - External accounts-receivable collaborator
// =============================================================================

// CustomerLedger is the external collaborator that tracks buyer balances.
// The sale engine notifies it after a sale commits; the reversal coordinator
// asks it to undo the balance change after a sale is voided. Balance
// bookkeeping itself lives outside this system.
type CustomerLedger interface {
	// SaleCommitted increases the buyer's total sales / current balance.
	SaleCommitted(ctx context.Context, buyer string, saleID ledger.TransactionID, amount decimal.Decimal) error

	// SaleReversed undoes an earlier SaleCommitted for the same sale.
	SaleReversed(ctx context.Context, buyer string, saleID ledger.TransactionID, amount decimal.Decimal) error
}

// LoggedCustomerLedger is the stand-in used when no real accounts-receivable
// system is wired up: it records each notification in the log so nothing is
// silently dropped.
type LoggedCustomerLedger struct {
	Log *logrus.Logger
}

func (l *LoggedCustomerLedger) SaleCommitted(_ context.Context, buyer string, saleID ledger.TransactionID, amount decimal.Decimal) error {
	l.Log.WithFields(logrus.Fields{
		"buyer":  buyer,
		"sale":   saleID,
		"amount": amount.String(),
	}).Info("customer ledger: sale committed")
	return nil
}

func (l *LoggedCustomerLedger) SaleReversed(_ context.Context, buyer string, saleID ledger.TransactionID, amount decimal.Decimal) error {
	l.Log.WithFields(logrus.Fields{
		"buyer":  buyer,
		"sale":   saleID,
		"amount": amount.String(),
	}).Info("customer ledger: sale reversed")
	return nil
}
