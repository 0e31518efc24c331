package slides

import (
	"image/color"
	"math"
)

// ContrastRatio is the WCAG relative-luminance contrast between two colors,
// from 1:1 (identical) to 21:1 (black on white). Used to warn about theme
// combinations the viewer will struggle to read.
func ContrastRatio(a, b color.Color) float64 {
	la, lb := relativeLuminance(a), relativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

func relativeLuminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b)
}

func linearize(v uint32) float64 {
	s := float64(v) / 65535.0
	if s <= 0.03928 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}
