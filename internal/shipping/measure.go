package shipping

import "github.com/shopspring/decimal"

const (
	// maxScale is the largest exponent magnitude accepted for masses, lengths and amounts.
	maxScale = 18
	// maxOrder bounds absolute values to 10^maxOrder.
	maxOrder = 15
)

var maxMagnitude = decimal.New(1, maxOrder)

// InRange reports whether d can go through the engine's arithmetic without rescaling to
// an arbitrary precision: its exponent is within ±18 and its absolute value at most 10^15.
func InRange(d decimal.Decimal) bool {
	if exp := d.Exponent(); exp < -maxScale || exp > maxScale {
		return false
	}
	return d.Abs().LessThanOrEqual(maxMagnitude)
}

// Clamp maps d into range. Values too small to register become zero, values too large
// saturate at ±10^15 and anything else is truncated to 18 decimal places. The order of
// magnitude is read from the coefficient length, so no power of ten is ever built for the
// exponent alone.
func Clamp(d decimal.Decimal) decimal.Decimal {
	if InRange(d) {
		return d
	}
	order := int64(d.NumDigits()) + int64(d.Exponent())
	switch {
	case order < -maxScale:
		return decimal.Zero
	case order > maxOrder+1:
		return saturated(d)
	}
	d = d.Truncate(maxScale)
	if d.Abs().GreaterThan(maxMagnitude) {
		return saturated(d)
	}
	return d
}

func saturated(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return maxMagnitude.Neg()
	}
	return maxMagnitude
}

func clampNull(v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid {
		return v
	}
	return decimal.NewNullDecimal(Clamp(v.Decimal))
}
