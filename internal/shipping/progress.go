package shipping

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Progress reports how far subtotal is from free shipping. The percentage stays within
// [0, 100] whatever the subtotal.
func (e *Engine) Progress(subtotal decimal.Decimal) FreeShippingProgress {
	threshold := e.cfg.FreeShipping.Threshold
	subtotal = Clamp(subtotal)

	remaining := threshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	pct := subtotal.Div(threshold).Mul(hundred)
	switch {
	case pct.IsNegative():
		pct = decimal.Zero
	case pct.GreaterThan(hundred):
		pct = hundred
	}

	return FreeShippingProgress{
		Remaining:  remaining,
		Percentage: pct.Round(moneyPlaces),
		Qualifies:  subtotal.GreaterThanOrEqual(threshold),
		Threshold:  threshold,
	}
}

// Subtotal sums unit price times quantity over the lines. Quantities below one count as one
// and unit prices are clamped.
func Subtotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		total = total.Add(Clamp(line.UnitPrice).Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}
