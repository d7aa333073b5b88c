package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterMass(t *testing.T) {
	f, err := NewFormatter("en", "USD")
	require.NoError(t, err)

	assert.Equal(t, "0.50 kg", f.Mass(500))
	assert.Equal(t, "12.34 kg", f.Mass(12340))
	assert.Equal(t, "0.50 kg", f.Weight(WeightAssessment{ChargeableGrams: 500}))
	assert.Equal(t, "2.00 kg (volumétrico)", f.Weight(WeightAssessment{ChargeableGrams: 2000, ChargedByVolume: true}))
	assert.Contains(t, f.Money(dec("12.5")), "12.50")
}

func TestFormatterSpanishDecimalComma(t *testing.T) {
	f, err := NewFormatter("es-AR", "ARS")
	require.NoError(t, err)

	assert.Equal(t, "es-AR", f.Locale())
	assert.Equal(t, "0,50 kg", f.Mass(500))
}

func TestNewFormatterRejectsUnknownInputs(t *testing.T) {
	_, err := NewFormatter("not a locale!", "ARS")
	assert.Error(t, err)

	_, err = NewFormatter("es-AR", "XXXX")
	assert.Error(t, err)
}
