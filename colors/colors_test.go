package colors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaletteSize(t *testing.T) {
	for n := 0; n <= 25; n++ {
		p := Palette(n)
		assert.Len(t, p, n, "Palette(%d) should return exactly %d colors", n, n)
	}
}

func TestPaletteColorsDistinct(t *testing.T) {
	// Typical taxonomy sizes stay well under 20 classes; every color must be
	// unique at that scale.
	p := Palette(20)
	seen := make(map[RGB]bool, len(p))
	for i, c := range p {
		assert.False(t, seen[c], "color %d (%v) duplicates an earlier color", i, c)
		seen[c] = true
	}
}

func TestPaletteStableForSameN(t *testing.T) {
	assert.Equal(t, Palette(10), Palette(10), "same n should produce the same palette")
}

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		want    RGB
	}{
		{name: "red hue", h: 0, s: 0.7, v: 0.9, want: RGB{229, 68, 68}},
		{name: "cyan hue", h: 0.5, s: 0.7, v: 0.9, want: RGB{68, 229, 229}},
		{name: "zero saturation is gray", h: 0.3, s: 0, v: 0.5, want: RGB{127, 127, 127}},
		{name: "black", h: 0, s: 0, v: 0, want: RGB{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HSVToRGB(tt.h, tt.s, tt.v))
		})
	}
}

func TestRGBMarshalsToArray(t *testing.T) {
	data, err := json.Marshal(RGB{229, 68, 68})
	require.NoError(t, err)
	assert.JSONEq(t, "[229,68,68]", string(data), "RGB should serialize as a bare [r,g,b] array")
}

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 255.0, RGB{255, 255, 255}.Luminance(), 0.01)
	assert.InDelta(t, 0.0, RGB{0, 0, 0}.Luminance(), 0.01)
	// Green dominates perceived brightness.
	assert.Greater(t, RGB{0, 255, 0}.Luminance(), RGB{255, 0, 0}.Luminance())
}
