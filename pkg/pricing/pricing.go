// Package pricing holds the money math shared by the diner core and the order
// service: a fixed 8% tax on the subtotal and no delivery fee.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	// TaxRate is applied to the subtotal of every cart, order and bill.
	TaxRate = decimal.NewFromFloat(0.08)

	// DeliveryFee is always zero for dine-in orders.
	DeliveryFee = decimal.Zero
)

// Line is one priced row: a unit price, optional per-unit deltas and a quantity.
type Line struct {
	UnitPrice float64
	Deltas    []float64
	Quantity  int
}

// Totals is the breakdown every caller displays.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"delivery_fee"`
	Total       float64 `json:"total"`
}

// EffectiveUnitPrice adds customization deltas to the base price.
func EffectiveUnitPrice(unitPrice float64, deltas []float64) decimal.Decimal {
	price := decimal.NewFromFloat(unitPrice)
	for _, d := range deltas {
		price = price.Add(decimal.NewFromFloat(d))
	}
	return price
}

// Compute sums lines and derives tax and total without rounding.
func Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(EffectiveUnitPrice(l.UnitPrice, l.Deltas).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return FromSubtotal(subtotal)
}

// FromSubtotal derives tax and total from an already computed subtotal.
func FromSubtotal(subtotal decimal.Decimal) Totals {
	tax := subtotal.Mul(TaxRate)
	total := subtotal.Add(tax).Add(DeliveryFee)
	return Totals{
		Subtotal:    subtotal.InexactFloat64(),
		Tax:         tax.InexactFloat64(),
		DeliveryFee: DeliveryFee.InexactFloat64(),
		Total:       total.InexactFloat64(),
	}
}

// Sum adds up precomputed totals, e.g. the orders of one session.
func Sum(parts ...Totals) Totals {
	subtotal, tax, total := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range parts {
		subtotal = subtotal.Add(decimal.NewFromFloat(p.Subtotal))
		tax = tax.Add(decimal.NewFromFloat(p.Tax))
		total = total.Add(decimal.NewFromFloat(p.Total))
	}
	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// Rounded returns a copy with every field rounded to cents.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:    Round2(t.Subtotal),
		Tax:         Round2(t.Tax),
		DeliveryFee: Round2(t.DeliveryFee),
		Total:       Round2(t.Total),
	}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
