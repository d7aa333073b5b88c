package shipping

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	gramsPerKg      = decimal.NewFromInt(1000)
	maxInt64Decimal = decimal.NewFromInt(math.MaxInt64)
)

// ResolveWeight computes actual, volumetric and chargeable mass for the cart. It never fails:
// missing or unusable measures fall back to the configured defaults, and measures outside
// InRange are clamped first.
func (e *Engine) ResolveWeight(lines []CartLine) WeightAssessment {
	var out WeightAssessment
	if len(lines) > 0 {
		out.Lines = make([]LineWeight, 0, len(lines))
	}
	for _, line := range lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		unit, defaultMass := e.unitMass(line.MassGrams)
		volumetric, defaultDims := e.unitVolumetricMass(line.Dimensions)

		out.ActualGrams = addSaturating(out.ActualGrams, mulSaturating(unit, int64(qty)))
		out.VolumetricGrams = addSaturating(out.VolumetricGrams, mulSaturating(volumetric, int64(qty)))
		out.Lines = append(out.Lines, LineWeight{
			ID:                  line.ID,
			Quantity:            qty,
			UnitGrams:           unit,
			UnitVolumetricGrams: volumetric,
			DefaultMass:         defaultMass,
			DefaultDimensions:   defaultDims,
		})
	}
	out.ChargeableGrams = out.ActualGrams
	if out.VolumetricGrams > out.ActualGrams {
		out.ChargeableGrams = out.VolumetricGrams
		out.ChargedByVolume = true
	}
	return out
}

func (e *Engine) unitMass(declared decimal.NullDecimal) (int64, bool) {
	declared = clampNull(declared)
	if !declared.Valid || !declared.Decimal.IsPositive() {
		return e.cfg.Mass.DefaultUnitGrams, true
	}
	return ceilToInt64(declared.Decimal), false
}

// unitVolumetricMass returns ceil(L×W×H×1000/factor) grams, with each absent dimension
// replaced by its default.
func (e *Engine) unitVolumetricMass(d Dimensions) (int64, bool) {
	m := e.cfg.Mass
	length, dl := dimensionOrDefault(d.Length, m.DefaultLength)
	width, dw := dimensionOrDefault(d.Width, m.DefaultWidth)
	height, dh := dimensionOrDefault(d.Height, m.DefaultHeight)

	scaled := length.Mul(width).Mul(height).Mul(gramsPerKg)
	q, r := scaled.QuoRem(decimal.NewFromInt(m.VolumetricFactor), 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return clampToInt64(q), dl || dw || dh
}

func dimensionOrDefault(v decimal.NullDecimal, fallback decimal.Decimal) (decimal.Decimal, bool) {
	v = clampNull(v)
	if !v.Valid || !v.Decimal.IsPositive() {
		return fallback, true
	}
	return v.Decimal, false
}

func ceilToInt64(d decimal.Decimal) int64 {
	return clampToInt64(d.Ceil())
}

func clampToInt64(d decimal.Decimal) int64 {
	if d.GreaterThan(maxInt64Decimal) {
		return math.MaxInt64
	}
	if d.IsNegative() {
		return 0
	}
	return d.IntPart()
}

func addSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func mulSaturating(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
