package core

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal is price × quantity, reduced by discountPercent when it is positive, rounded to
// whole currency units. Lines and allocations both go through here so their totals agree.
func LineTotal(price decimal.Decimal, quantity int64, discountPercent decimal.Decimal) decimal.Decimal {
	total := price.Mul(decimal.NewFromInt(quantity))
	if discountPercent.IsPositive() {
		total = total.Mul(hundred.Sub(discountPercent)).Div(hundred)
	}
	return total.Round(0)
}

// SumTotals adds up the rounded totals of a set of lines.
func SumTotals(lines []ResolvedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal)
	}
	return sum
}
