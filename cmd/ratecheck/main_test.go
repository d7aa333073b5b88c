package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

func runRatecheck(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateEmbeddedRates(t *testing.T) {
	out, err := runRatecheck(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: embedded rates: 8 zones, 4 weight brackets, policy ranked, currency ARS")
}

func TestValidateRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("currency: ARS\nunknown_key: 1\n"), 0o600))

	_, err := runRatecheck(t, "validate", "--rates", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, shipping.ErrInvalidRateConfig)
}

func TestZonesListsCatalogue(t *testing.T) {
	out, err := runRatecheck(t, "zones")
	require.NoError(t, err)
	assert.Contains(t, out, "patagonia")
	assert.Contains(t, out, "4000-4399,5000-5999")
	assert.Contains(t, out, "(default)")
}

func TestQuoteRanked(t *testing.T) {
	out, err := runRatecheck(t, "quote", "--postal", "2000", "--item", "mate:2:4500:350")
	require.NoError(t, err)
	assert.Contains(t, out, "zone:     rosario")
	assert.Contains(t, out, "policy:   ranked")
	assert.Contains(t, out, "*")
	assert.Contains(t, out, "free shipping in")
}

func TestQuotePolicyFromEnvironment(t *testing.T) {
	t.Setenv("RATECHECK_POLICY", "breakdown")

	out, err := runRatecheck(t, "quote", "--postal", "2000", "--item", "mate:1:4500:350:10x10x10")
	require.NoError(t, err)
	assert.Contains(t, out, "policy:   breakdown")
	assert.Contains(t, out, "insurance")
}

func TestQuoteFreeShipping(t *testing.T) {
	out, err := runRatecheck(t, "quote", "--postal", "1425", "--item", "heladera:1:250000:20000")
	require.NoError(t, err)
	assert.Contains(t, out, "free shipping")
	assert.NotContains(t, out, "free shipping in")
}

func TestQuoteErrors(t *testing.T) {
	_, err := runRatecheck(t, "quote", "--postal", "12", "--item", "a:1:10")
	assert.ErrorIs(t, err, shipping.ErrInvalidPostalCode)

	_, err = runRatecheck(t, "quote", "--postal", "2000")
	assert.ErrorIs(t, err, shipping.ErrEmptyCart)

	_, err = runRatecheck(t, "quote", "--postal", "2000", "--item", "a:one:10")
	assert.ErrorContains(t, err, "invalid quantity")
}

func TestParseItemSpec(t *testing.T) {
	line, err := parseItemSpec("termo:1:38000:900:30x10x10")
	require.NoError(t, err)
	assert.Equal(t, "termo", line.ID)
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, line.MassGrams.Valid)
	assert.True(t, line.Dimensions.Height.Valid)

	_, err = parseItemSpec("termo:1")
	assert.Error(t, err)

	_, err = parseItemSpec("termo:1:10:900:30x10")
	assert.Error(t, err)

	_, err = parseItemSpec("termo:1:10:1e-20000000")
	assert.ErrorIs(t, err, errOutOfRange)

	_, err = parseItemSpec("termo:1:10:900:30x1e20000000x10")
	assert.ErrorIs(t, err, errOutOfRange)
}

func TestQuoteRejectsExtremeSubtotal(t *testing.T) {
	_, err := runRatecheck(t, "quote", "--postal", "2000", "--item", "a:1:10", "--subtotal", "1e999999999")
	assert.ErrorIs(t, err, errOutOfRange)
}
