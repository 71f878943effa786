// Package pricing computes cart and order money fields with exact decimal
// arithmetic. Nothing here touches storage.
package pricing

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits kept for every amount.
const MoneyPlaces = 2

var (
	// TaxRate is the flat GST rate applied to a cart subtotal.
	TaxRate = decimal.RequireFromString("0.18")

	// ShippingCost is charged on every order. Shipping is currently free.
	ShippingCost = decimal.Zero
)

// Line is the priced view of one cart row.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns UnitPrice × Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds the aggregate money fields of a cart.
type Totals struct {
	TotalQuantity int
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
}

// IsEmpty reports whether the totals were computed from no lines.
func (t Totals) IsEmpty() bool {
	return t.TotalQuantity == 0
}

// Calculate sums lines into cart totals. TotalAmount is always
// Subtotal + TaxAmount.
func Calculate(lines []Line) Totals {
	totals := Totals{
		Subtotal:    decimal.Zero,
		TaxAmount:   decimal.Zero,
		TotalAmount: decimal.Zero,
	}

	for _, line := range lines {
		totals.TotalQuantity += line.Quantity
		totals.Subtotal = totals.Subtotal.Add(line.Total())
	}

	totals.TaxAmount = Tax(totals.Subtotal)
	totals.TotalAmount = totals.Subtotal.Add(totals.TaxAmount)
	return totals
}

// Tax returns subtotal × TaxRate rounded to MoneyPlaces.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(MoneyPlaces)
}

// OrderTotal returns the amount charged for an order.
func OrderTotal(subtotal, shipping decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shipping)
}

// Format renders an amount with exactly MoneyPlaces fractional digits.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(MoneyPlaces)
}
