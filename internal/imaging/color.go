package imaging

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// sampleHalfWidth gives a 5x5 sampling window.
const sampleHalfWidth = 2

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorResult contains a dot color in the representations reported by the
// tool server and the calibration report.
type ColorResult struct {
	Hex     string   `json:"hex"` // "#rrggbb"
	RGB     RGBColor `json:"rgb"`
	HSL     HSLColor `json:"hsl"`
	Redness int      `json:"redness"`
}

// Colorful converts the color for use with go-colorful.
func (c RGBColor) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Redness scores how red a color is: 2R - G - B. The center dot of a
// calibration pattern is the dot with the highest score.
func (c RGBColor) Redness() int {
	return 2*int(c.R) - int(c.G) - int(c.B)
}

// Hex returns the color as "#rrggbb".
func (c RGBColor) Hex() string {
	return c.Colorful().Hex()
}

// Result expands the color into every reported representation.
func (c RGBColor) Result() ColorResult {
	h, s, l := c.Colorful().Hsl()
	return ColorResult{
		Hex:     c.Hex(),
		RGB:     c,
		HSL:     HSLColor{H: int(h + 0.5), S: int(s*100 + 0.5), L: int(l*100 + 0.5)},
		Redness: c.Redness(),
	}
}

// MeanColor averages the 5x5 neighborhood centered on (cx, cy). Pixels
// outside the buffer are skipped; if none remain the result is black.
func MeanColor(buf *Buffer, cx, cy int) RGBColor {
	var r, g, b, n int
	for y := cy - sampleHalfWidth; y <= cy+sampleHalfWidth; y++ {
		for x := cx - sampleHalfWidth; x <= cx+sampleHalfWidth; x++ {
			if !buf.In(x, y) {
				continue
			}
			pr, pg, pb := buf.RGB(x, y)
			r += int(pr)
			g += int(pg)
			b += int(pb)
			n++
		}
	}
	if n == 0 {
		return RGBColor{}
	}
	return RGBColor{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)}
}
