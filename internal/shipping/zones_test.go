package shipping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyZone(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		code string
		want string
	}{
		{code: "2000", want: "rosario"},
		{code: "2199", want: "rosario"},
		{code: "2200", want: "nacional"},
		{code: "1000", want: "caba"},
		{code: "1999", want: "caba"},
		{code: "C1425ABC", want: "caba"},
		{code: " s 2121 abc ", want: "rosario"},
		{code: "8300", want: "patagonia"},
		{code: "9499", want: "patagonia"},
		{code: "9500", want: "nacional"},
		{code: "9999", want: "nacional"},
		{code: "0000", want: "nacional"},
		{code: "ABCD", want: "nacional"},
		{code: "12-34", want: "nacional"},
		{code: "X12345", want: "caba"},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			zone, err := engine.ClassifyZone(tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.want, zone.ID)
		})
	}
}

func TestClassifyZoneRejectsShortCodes(t *testing.T) {
	engine := newTestEngine(t)

	for _, code := range []string{"", "   ", "123", " 1 2 3 "} {
		_, err := engine.ClassifyZone(code)
		assert.ErrorIs(t, err, ErrInvalidPostalCode, "code %q", code)
	}
}

func TestClassifyZoneIsTotal(t *testing.T) {
	engine := newTestEngine(t)

	for key := 0; key <= maxPostalKey; key++ {
		zone, err := engine.ClassifyZone(fmt.Sprintf("%04d", key))
		require.NoError(t, err)
		require.NotEmpty(t, zone.ID)

		owners := 0
		for _, z := range engine.Zones() {
			for _, r := range z.Ranges {
				if r.Contains(key) {
					owners++
				}
			}
		}
		require.LessOrEqual(t, owners, 1, "key %d", key)
	}
}

func TestZonesListsDefaultLast(t *testing.T) {
	engine := newTestEngine(t)

	zones := engine.Zones()
	require.Len(t, zones, 4)
	assert.Equal(t, "rosario", zones[0].ID)
	assert.Equal(t, "nacional", zones[3].ID)
	assert.Empty(t, zones[3].Ranges)

	zones[0].Ranges[0].From = 0
	again := engine.Zones()
	assert.Equal(t, 2000, again[0].Ranges[0].From)
}

func TestNormalizePostalCode(t *testing.T) {
	assert.Equal(t, "S2121ABC", NormalizePostalCode(" s2121\tabc\n"))
	assert.Equal(t, "", NormalizePostalCode("  "))
}

func TestPostalKey(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "2121", want: 2121, wantOK: true},
		{in: "S2121ABC", want: 2121, wantOK: true},
		{in: "123456", want: 1234, wantOK: true},
		{in: "12A3456", want: 3456, wantOK: true},
		{in: "12A34", wantOK: false},
		{in: "ABCD", wantOK: false},
	}

	for _, tc := range tests {
		got, ok := postalKey(tc.in)
		assert.Equal(t, tc.wantOK, ok, tc.in)
		if tc.wantOK {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}
