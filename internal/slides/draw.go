package slides

import (
	"image"
	"image/color"
	"math/rand"
)

// fillGradient paints a vertical gradient over the whole canvas,
// interpolating linearly between adjacent stops.
func fillGradient(img *image.RGBA, stops []color.NRGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if len(stops) == 1 {
		stops = append(stops, stops[0])
	}
	segments := len(stops) - 1
	segH := float64(h) / float64(segments)

	for y := 0; y < h; y++ {
		seg := int(float64(y) / segH)
		if seg > segments-1 {
			seg = segments - 1
		}
		pos := (float64(y) - float64(seg)*segH) / segH

		c1, c2 := stops[seg], stops[seg+1]
		r := uint8(float64(c1.R) + (float64(c2.R)-float64(c1.R))*pos)
		g := uint8(float64(c1.G) + (float64(c2.G)-float64(c1.G))*pos)
		bl := uint8(float64(c1.B) + (float64(c2.B)-float64(c1.B))*pos)

		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			row[x] = r
			row[x+1] = g
			row[x+2] = bl
			row[x+3] = 255
		}
	}
}

// blendPixel composites c over the canvas pixel (source-over). The canvas is
// always opaque here, which keeps the math short.
func blendPixel(img *image.RGBA, x, y int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
		return
	}
	i := img.PixOffset(x, y)
	a := uint32(c.A)
	inv := 255 - a
	img.Pix[i] = uint8((uint32(c.R)*a + uint32(img.Pix[i])*inv) / 255)
	img.Pix[i+1] = uint8((uint32(c.G)*a + uint32(img.Pix[i+1])*inv) / 255)
	img.Pix[i+2] = uint8((uint32(c.B)*a + uint32(img.Pix[i+2])*inv) / 255)
}

func fillCircle(img *image.RGBA, cx, cy, radius int, c color.NRGBA) {
	rr := radius * radius
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= rr {
				blendPixel(img, x, y, c)
			}
		}
	}
}

func fillRect(img *image.RGBA, x, y, w, h int, c color.NRGBA) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			blendPixel(img, xx, yy, c)
		}
	}
}

// fillRoundedRect paints a rounded rectangle; corner pixels outside the
// corner circles are left untouched.
func fillRoundedRect(img *image.RGBA, x, y, w, h, radius int, c color.NRGBA) {
	if radius > w/2 {
		radius = w / 2
	}
	if radius > h/2 {
		radius = h / 2
	}
	rr := radius * radius
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			dx, dy := 0, 0
			if xx < x+radius {
				dx = x + radius - xx
			} else if xx >= x+w-radius {
				dx = xx - (x + w - radius - 1)
			}
			if yy < y+radius {
				dy = y + radius - yy
			} else if yy >= y+h-radius {
				dy = yy - (y + h - radius - 1)
			}
			if dx*dx+dy*dy <= rr {
				blendPixel(img, xx, yy, c)
			}
		}
	}
}

// Decoration is seeded, not random: the same theme renders the same
// background on every run.
const decorationSeed = 42

// decorate adds the accent-colored background ornaments: bokeh circles,
// horizontal rules near the edges and small corner brackets.
func decorate(img *image.RGBA, accent color.NRGBA, px func(int) int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rng := rand.New(rand.NewSource(decorationSeed))

	for i := 0; i < 6; i++ {
		cx := rng.Intn(w)
		cy := rng.Intn(h)
		radius := px(100 + rng.Intn(251))
		alpha := uint8(8 + rng.Intn(18))
		fillCircle(img, cx, cy, radius, withAlpha(accent, alpha))
	}

	lineMargin := px(160)
	thickness := px(2)
	rule := withAlpha(accent, 60)
	fillRect(img, lineMargin, px(100), w-2*lineMargin, thickness, rule)
	fillRect(img, lineMargin, h-px(100), w-2*lineMargin, thickness, rule)

	corner := withAlpha(accent, 50)
	inset, length := px(60), px(60)
	// Top-left, top-right, bottom-left, bottom-right brackets.
	fillRect(img, inset, inset, length, thickness, corner)
	fillRect(img, inset, inset, thickness, length, corner)
	fillRect(img, w-inset-length, inset, length, thickness, corner)
	fillRect(img, w-inset-thickness, inset, thickness, length, corner)
	fillRect(img, inset, h-inset-thickness, length, thickness, corner)
	fillRect(img, inset, h-inset-length, thickness, length, corner)
	fillRect(img, w-inset-length, h-inset-thickness, length, thickness, corner)
	fillRect(img, w-inset-thickness, h-inset-length, thickness, length, corner)
}

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}
