package ratefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

func defaultEngine(t *testing.T) *shipping.Engine {
	t.Helper()
	cfg, err := Default()
	require.NoError(t, err)
	engine, err := shipping.NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestDefaultRatesBuildEngine(t *testing.T) {
	engine := defaultEngine(t)

	assert.Equal(t, "ARS", engine.Currency())
	assert.Equal(t, shipping.PolicyRanked, engine.DefaultPolicy())
	assert.True(t, engine.FreeShippingThreshold().Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, int64(30000), engine.MaxChargeableGrams())
	assert.Equal(t, "2121", engine.Origin().PostalCode)
	assert.Equal(t, []int64{2000, 5000, 10000}, engine.Tariffs().Bounds())
	assert.Len(t, engine.Zones(), 8)
}

func TestDefaultRatesZoneCatalogue(t *testing.T) {
	engine := defaultEngine(t)

	tests := map[string]string{
		"2121":     "rosario",
		"S2000ABC": "rosario",
		"3000":     "santa-fe",
		"3699":     "santa-fe",
		"1425":     "caba-gba",
		"7600":     "buenos-aires",
		"4200":     "centro",
		"5000":     "centro",
		"3700":     "norte",
		"4400":     "norte",
		"4999":     "norte",
		"9410":     "patagonia",
		"9999":     "nacional",
		"0999":     "nacional",
	}
	for code, want := range tests {
		zone, err := engine.ClassifyZone(code)
		require.NoError(t, err, code)
		assert.Equal(t, want, zone.ID, code)
	}
}

func TestDefaultRatesRankedQuote(t *testing.T) {
	engine := defaultEngine(t)
	lines := []shipping.CartLine{{
		ID:        "mate",
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(15000),
		MassGrams: decimal.NewNullDecimal(decimal.NewFromInt(800)),
		Dimensions: shipping.Dimensions{
			Length: decimal.NewNullDecimal(decimal.NewFromInt(20)),
			Width:  decimal.NewNullDecimal(decimal.NewFromInt(15)),
			Height: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		},
	}}

	quote, err := engine.Quote(shipping.QuoteRequest{Lines: lines, PostalCode: "8400", Subtotal: shipping.Subtotal(lines)})
	require.NoError(t, err)

	assert.Equal(t, int64(1600), quote.Weight.ChargeableGrams)
	assert.Equal(t, "patagonia", quote.Zone.ID)
	require.Len(t, quote.Options, 6)
	assert.Equal(t, "andreani", quote.Options[0].Carrier)
	assert.Equal(t, "sucursal", quote.Options[0].ServiceLevel)
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(18000)))
	assert.Equal(t, "5-10 días hábiles", quote.DeliveryEstimate)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("currency: ARS\nsurprise: true\n"))
	assert.ErrorIs(t, err, shipping.ErrInvalidRateConfig)
}

func TestParseRejectsEmptyAndMalformed(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, shipping.ErrInvalidRateConfig)

	_, err = Parse([]byte("free_shipping:\n  threshold: lots\n"))
	assert.ErrorIs(t, err, shipping.ErrInvalidRateConfig)
}

func TestLoadFile(t *testing.T) {
	custom := `
currency: usd
policy: Breakdown
free_shipping:
  threshold: "75.50"
  delivery_window: 3 days
mass:
  default_unit_grams: 250
  max_chargeable_grams: 20000
  volumetric_factor: 6000
  default_dimensions: {length: 10, width: 10, height: 10}
surcharges: {insurance_rate: 0, packaging: 1.5, handling: 0}
min_postal_code_length: 4
bracket_bounds: [1000]
zones:
  - id: local
    rate_area: near
    base_cost: 5
    cost_per_kg: 1
    ranges: [{from: 0, to: 4999}]
default_zone: {id: far, rate_area: far, base_cost: 9, cost_per_kg: 2}
carriers:
  - id: post
    name: Post
    services:
      - level: standard
        rates: {near: [3, 4], far: [6, 8]}
`
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, shipping.PolicyBreakdown, cfg.DefaultPolicy)
	assert.True(t, cfg.FreeShipping.Threshold.Equal(decimal.RequireFromString("75.5")))

	engine, err := shipping.NewEngine(cfg)
	require.NoError(t, err)

	quote, err := engine.Quote(shipping.QuoteRequest{
		Lines:      []shipping.CartLine{{ID: "a", Quantity: 1}},
		PostalCode: "6000",
		Subtotal:   decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "far", quote.Zone.ID)
	// 9 base + 0.25 kg x 2 + 1.5 packaging
	assert.True(t, quote.Total.Equal(decimal.RequireFromString("11")), "total %s", quote.Total)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	cfg, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, "ARS", cfg.Currency)
	assert.Len(t, cfg.Carriers, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
