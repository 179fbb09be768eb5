package model

import "github.com/shopspring/decimal"

// Money arithmetic runs on decimals so that quantity×price sums are
// exact; the results are rendered back into the float64 fields the
// persisted JSON contract uses. 85.0×2 must be 170, not 169.99999.

// LineTotal returns quantity×price for a single order line.
// Cancelled lines total zero.
func LineTotal(l OrderLine) float64 {
	if l.Cancelled {
		return 0
	}
	q := decimal.NewFromInt(int64(l.Quantity))
	p := decimal.NewFromFloat(l.Price)
	f, _ := q.Mul(p).Round(2).Float64()
	return f
}

// ComputeTotals recalculates Subtotal and Total from the order's
// active lines and writes them back. Cancelled lines never contribute.
//
// Subtotal and Total are currently equal: the source system applies no
// tax or service charge at this layer.
func ComputeTotals(o *Order) {
	sum := decimal.Zero
	for _, l := range o.Items {
		if l.Cancelled {
			continue
		}
		q := decimal.NewFromInt(int64(l.Quantity))
		p := decimal.NewFromFloat(l.Price)
		sum = sum.Add(q.Mul(p))
	}
	f, _ := sum.Round(2).Float64()
	o.Subtotal = f
	o.Total = f
}
