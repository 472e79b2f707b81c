// Package colors generates visually distinct palettes for label classes.
package colors

// RGB is a color triple with channels in [0,255]. It marshals to a JSON
// array [r, g, b], which is the on-disk form used by project files.
type RGB [3]uint8

// R returns the red channel.
func (c RGB) R() uint8 { return c[0] }

// G returns the green channel.
func (c RGB) G() uint8 { return c[1] }

// B returns the blue channel.
func (c RGB) B() uint8 { return c[2] }

// Luminance returns the perceived brightness in [0,255]. Used to pick a
// readable caption color against a box drawn in this color.
func (c RGB) Luminance() float64 {
	return 0.299*float64(c[0]) + 0.587*float64(c[1]) + 0.114*float64(c[2])
}

// Palettes keep saturation and value fixed so only hue separates the
// classes.
const (
	paletteSaturation = 0.7
	paletteValue      = 0.9
)

// Palette returns n distinct colors with hue evenly spaced across [0,1).
// n=0 yields an empty palette. Colors are positional: regenerating with a
// different n reassigns every slot.
func Palette(n int) []RGB {
	out := make([]RGB, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, HSVToRGB(float64(i)/float64(n), paletteSaturation, paletteValue))
	}
	return out
}

// HSVToRGB converts hue/saturation/value in [0,1] to an RGB triple.
func HSVToRGB(h, s, v float64) RGB {
	if s == 0 {
		g := uint8(v * 255)
		return RGB{g, g, g}
	}

	sector := int(h * 6)
	f := h*6 - float64(sector)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch sector % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}

	return RGB{uint8(r * 255), uint8(g * 255), uint8(b * 255)}
}
