package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nikkanikki/inventory-engine/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// TRADE SCHEME TESTS
// =============================================================================

func TestFreeUnits_Proportional(t *testing.T) {
	// GIVEN: A "10+1" scheme (buy 10 get 1 free)
	// WHEN: 110 units are sold
	// THEN: Exactly 10 units are free (110 * 1 / 11), no batch rounding

	free := pricing.FreeUnits(110, "10+1")
	assert.True(t, dec("10").Equal(free), "expected 10 free units, got %s", free)
}

func TestFreeUnits_Fractional(t *testing.T) {
	// GIVEN: A "10+1" scheme
	// WHEN: Quantity is not a multiple of buy+free
	// THEN: The rebate stays fractional, not rounded down to batches

	free := pricing.FreeUnits(100, "10+1")
	// 100 / 11 = 9.0909...
	assert.True(t, free.GreaterThan(dec("9")), "free units should exceed 9, got %s", free)
	assert.True(t, free.LessThan(dec("10")), "free units should be below 10, got %s", free)
}

func TestFreeUnits_MalformedSchemes(t *testing.T) {
	// GIVEN: Malformed or non-positive schemes
	// WHEN: Computing the rebate
	// THEN: Zero free units - full price, never an error

	for _, scheme := range []string{"", "10", "10+", "+1", "abc+def", "0+1", "10+0", "-5+1", "10+1+2"} {
		free := pricing.FreeUnits(100, scheme)
		assert.True(t, free.IsZero(), "scheme %q should yield zero free units, got %s", scheme, free)
	}
}

func TestFreeUnits_WhitespaceTolerated(t *testing.T) {
	free := pricing.FreeUnits(11, " 10 + 1 ")
	assert.True(t, dec("1").Equal(free))
}

// =============================================================================
// ITEM PRICING TESTS
// =============================================================================

func TestPriceItem_SchemeOnly(t *testing.T) {
	// GIVEN: 110 units at 100.00 under "10+1"
	// WHEN: Pricing the line
	// THEN: Total 11000, 10 free units, after-scheme 10000

	price := pricing.PriceItem(110, dec("100"), "10+1", decimal.Zero, decimal.Zero)

	assert.True(t, dec("11000").Equal(price.Total))
	assert.True(t, dec("10").Equal(price.FreeUnits))
	assert.True(t, dec("10000").Equal(price.AfterScheme))
	assert.True(t, dec("10000").Equal(price.Final))
}

func TestPriceItem_DiscountOrder(t *testing.T) {
	// GIVEN: A line with a scheme, a fixed amount, and a percentage
	// WHEN: Pricing the line
	// THEN: Scheme first, then amount, then percentage on the remainder

	// 110 * 100 = 11000; scheme -> 10000; -1000 -> 9000; -10% -> 8100
	price := pricing.PriceItem(110, dec("100"), "10+1", dec("10"), dec("1000"))
	assert.True(t, dec("8100").Equal(price.Final), "got %s", price.Final)
}

func TestPriceItem_ClampsAtZero(t *testing.T) {
	// GIVEN: A fixed discount larger than the line value
	// WHEN: Pricing the line
	// THEN: The final price clamps at zero, never negative

	price := pricing.PriceItem(1, dec("50"), "", decimal.Zero, dec("100"))
	assert.True(t, price.Final.IsZero(), "final should clamp to zero, got %s", price.Final)
}

func TestPriceItem_NoDiscounts(t *testing.T) {
	price := pricing.PriceItem(3, dec("25.50"), "", decimal.Zero, decimal.Zero)
	assert.True(t, dec("76.5").Equal(price.Final))
}

func TestPriceItem_FinalNeverExceedsTotal(t *testing.T) {
	// GIVEN: Any combination of non-negative discounts
	// THEN: The final never exceeds the undiscounted total

	cases := []struct {
		qty    int64
		scheme string
		pct    string
		amt    string
	}{
		{10, "", "0", "0"},
		{10, "10+1", "0", "0"},
		{10, "2+1", "15", "5"},
		{1, "", "100", "0"},
	}
	for _, c := range cases {
		price := pricing.PriceItem(c.qty, dec("99.99"), c.scheme, dec(c.pct), dec(c.amt))
		assert.True(t, price.Final.LessThanOrEqual(price.Total),
			"final %s exceeds total %s for %+v", price.Final, price.Total, c)
	}
}

// =============================================================================
// BILL AGGREGATION TESTS
// =============================================================================

func TestPriceBill_SumsAndDiscounts(t *testing.T) {
	// GIVEN: Two lines finaling at 8100 and 76.50
	// WHEN: Applying a bill discount of 176.50 then 10%
	// THEN: (8176.50 - 176.50) * 0.9 = 7200

	items := []pricing.ItemPrice{
		pricing.PriceItem(110, dec("100"), "10+1", dec("10"), dec("1000")),
		pricing.PriceItem(3, dec("25.50"), "", decimal.Zero, decimal.Zero),
	}

	bill := pricing.PriceBill(items, dec("10"), dec("176.50"))
	assert.True(t, dec("11076.5").Equal(bill.TotalAmount), "total got %s", bill.TotalAmount)
	assert.True(t, dec("8176.5").Equal(bill.ItemsFinal), "items final got %s", bill.ItemsFinal)
	assert.True(t, dec("7200").Equal(bill.FinalAmount), "final got %s", bill.FinalAmount)
}

func TestPriceBill_Empty(t *testing.T) {
	bill := pricing.PriceBill(nil, decimal.Zero, decimal.Zero)
	assert.True(t, bill.TotalAmount.IsZero())
	assert.True(t, bill.FinalAmount.IsZero())
}

func TestPriceBill_ClampsAtZero(t *testing.T) {
	// GIVEN: A bill discount amount exceeding the bill
	// THEN: The final clamps at zero

	items := []pricing.ItemPrice{pricing.PriceItem(1, dec("10"), "", decimal.Zero, decimal.Zero)}
	bill := pricing.PriceBill(items, decimal.Zero, dec("50"))
	assert.True(t, bill.FinalAmount.IsZero())
}
