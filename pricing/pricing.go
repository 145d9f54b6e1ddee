/*
Package pricing computes item and bill totals under trade-scheme and
layered discounts.

PURPOSE:
  Pure calculation, no ledger side effects. The sale engine calls in here to
  price each line and the bill before anything touches stock.

DISCOUNT ORDER (fixed, do not reorder):
  1. Trade scheme rebate  (proportional "buy N get M free")
  2. Fixed discount amount (clamped at zero)
  3. Percentage discount   (clamped at zero)
  Bill-level discounts apply the same fixed-then-percentage order to the
  summed item finals.

TRADE SCHEME:
  "10+1" means buy 10 get 1 free. The rebate is continuous and proportional:
  freeUnits = free * quantity / (buy + free), NOT integer batch rounding.
  quantity=110 under "10+1" rebates exactly 10 units' worth. A deliberate
  simplification preserved from the business rules.

PRECISION:
  All money flows through decimal.Decimal. Float arithmetic would drift on
  percentage discounts.

SEE ALSO:
  - inventory/sale.go: The only caller with side effects
*/
package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRADE SCHEME
// =============================================================================

// FreeUnits parses a "buy+free" scheme and returns the proportional free
// unit count for the given quantity. Malformed schemes and non-positive
// components yield zero - a bad scheme silently charges full price rather
// than failing the sale.
func FreeUnits(quantity int64, scheme string) decimal.Decimal {
	buy, free, ok := parseScheme(scheme)
	if !ok || quantity <= 0 {
		return decimal.Zero
	}
	// free * quantity / (buy + free), kept fractional.
	return decimal.NewFromInt(free * quantity).
		Div(decimal.NewFromInt(buy + free))
}

func parseScheme(scheme string) (buy, free int64, ok bool) {
	parts := strings.Split(strings.TrimSpace(scheme), "+")
	if len(parts) != 2 {
		return 0, 0, false
	}
	buy, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	free, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if buy <= 0 || free <= 0 {
		return 0, 0, false
	}
	return buy, free, true
}

// =============================================================================
// ITEM PRICING
// =============================================================================

// ItemPrice is the priced result of one sale line.
type ItemPrice struct {
	Total       decimal.Decimal // quantity * unit price
	FreeUnits   decimal.Decimal
	AfterScheme decimal.Decimal
	Final       decimal.Decimal
}

// PriceItem prices one line: scheme rebate, then fixed amount, then
// percentage, clamping at zero after each discount stage.
func PriceItem(quantity int64, unitPrice decimal.Decimal, scheme string, discountPct, discountAmt decimal.Decimal) ItemPrice {
	total := decimal.NewFromInt(quantity).Mul(unitPrice)

	freeUnits := FreeUnits(quantity, scheme)
	afterScheme := total.Sub(freeUnits.Mul(unitPrice))

	afterAmount := clampZero(afterScheme.Sub(discountAmt))
	final := clampZero(applyPct(afterAmount, discountPct))

	return ItemPrice{
		Total:       total,
		FreeUnits:   freeUnits,
		AfterScheme: afterScheme,
		Final:       final,
	}
}

// =============================================================================
// BILL AGGREGATION
// =============================================================================

// BillPrice is the priced result of a whole bill.
type BillPrice struct {
	TotalAmount decimal.Decimal // sum of item totals, before any discount
	ItemsFinal  decimal.Decimal // sum of item finals
	FinalAmount decimal.Decimal // after bill-level discounts
}

// PriceBill sums item totals and finals, then applies the bill-level fixed
// amount followed by the bill-level percentage, with the same clamp at zero.
func PriceBill(items []ItemPrice, billDiscountPct, billDiscountAmt decimal.Decimal) BillPrice {
	total := decimal.Zero
	itemsFinal := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Total)
		itemsFinal = itemsFinal.Add(it.Final)
	}

	afterAmount := clampZero(itemsFinal.Sub(billDiscountAmt))
	final := clampZero(applyPct(afterAmount, billDiscountPct))

	return BillPrice{
		TotalAmount: total,
		ItemsFinal:  itemsFinal,
		FinalAmount: final,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

var hundred = decimal.NewFromInt(100)

func applyPct(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
