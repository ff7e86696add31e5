package documents

import "github.com/shopspring/decimal"

// Totals holds the derived money columns of a document.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals stamps every line total and sums the document totals.
// Line total is gross minus discount plus tax, rounded to cents.
func ComputeTotals(lines []LineItem) ([]LineItem, Totals) {
	out := make([]LineItem, len(lines))
	totals := Totals{Subtotal: decimal.Zero, Discount: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	for i, line := range lines {
		gross := line.Gross()
		line.Total = gross.Sub(line.Discount).Add(line.Tax).Round(2)
		out[i] = line
		totals.Subtotal = totals.Subtotal.Add(gross)
		totals.Discount = totals.Discount.Add(line.Discount)
		totals.Tax = totals.Tax.Add(line.Tax)
		totals.Total = totals.Total.Add(line.Total)
	}
	totals.Subtotal = totals.Subtotal.Round(2)
	totals.Discount = totals.Discount.Round(2)
	totals.Tax = totals.Tax.Round(2)
	return out, totals
}

// ApplyTotals recomputes the document's lines and totals in place, ignoring
// whatever totals the caller supplied.
func (d *Document) ApplyTotals() {
	lines, totals := ComputeTotals(d.Lines)
	d.Lines = lines
	d.Subtotal = totals.Subtotal
	d.Discount = totals.Discount
	d.Tax = totals.Tax
	d.Total = totals.Total
}
