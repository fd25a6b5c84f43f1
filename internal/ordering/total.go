package ordering

import "github.com/shopspring/decimal"

// LineTotal is the recorded total, or price × quantity when none was recorded.
func LineTotal(sel Selection, quantity int) decimal.Decimal {
	if sel.Total != nil {
		return *sel.Total
	}
	return sel.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// AggregateTotal sums the line totals of every line that has a selection.
// Lines without a selection contribute nothing.
func AggregateTotal(selections map[LineKey]Selection, lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		sel, ok := selections[l.Key]
		if !ok {
			continue
		}
		total = total.Add(LineTotal(sel, l.Quantity))
	}
	return total
}
