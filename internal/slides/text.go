package slides

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/solovev/shortsgen/internal/script"
)

// wrap breaks text into lines no wider than maxWidth. Wrapping is per rune:
// the content is Korean-first, where any syllable boundary is a legal break.
func wrap(face font.Face, text string, maxWidth int) []string {
	text = script.StripEmoji(text)
	if text == "" {
		return nil
	}

	var lines []string
	for _, paragraph := range splitParagraphs(text) {
		line := ""
		for _, r := range paragraph {
			candidate := line + string(r)
			if font.MeasureString(face, candidate).Ceil() <= maxWidth {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			line = string(r)
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitParagraphs honors both literal newlines and the escaped `\n` that
// language models like to emit inside JSON strings.
func splitParagraphs(text string) []string {
	if strings.Contains(text, `\n`) {
		return strings.Split(text, `\n`)
	}
	return strings.Split(text, "\n")
}

func lineHeight(face font.Face) int {
	return face.Metrics().Height.Ceil()
}

func blockHeight(face font.Face, lines []string, spacing int) int {
	if len(lines) == 0 {
		return 0
	}
	return len(lines)*lineHeight(face) + (len(lines)-1)*spacing
}

// drawWrapped draws the lines centered on centerX from top y down, each with
// a two-pass drop shadow. Returns the y just below the block.
func drawWrapped(img *image.RGBA, face font.Face, lines []string, centerX, y int, fill color.NRGBA, spacing, shadow int) int {
	ascent := face.Metrics().Ascent.Ceil()
	lh := lineHeight(face)
	shadowColor := color.NRGBA{A: 255}

	cur := y
	for _, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		x := centerX - width/2
		baseline := cur + ascent
		drawString(img, face, line, x+shadow, baseline+shadow, shadowColor)
		drawString(img, face, line, x+shadow/3, baseline+shadow/3, shadowColor)
		drawString(img, face, line, x, baseline, fill)
		cur += lh + spacing
	}
	return y + blockHeight(face, lines, spacing)
}

func drawString(img *image.RGBA, face font.Face, s string, x, y int, c color.NRGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
