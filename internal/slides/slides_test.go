package slides

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func testFace(t *testing.T, size float64) font.Face {
	t.Helper()
	f, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72})
	require.NoError(t, err)
	return face
}

func TestWrapRespectsMaxWidth(t *testing.T) {
	face := testFace(t, 16)
	maxW := 120

	lines := wrap(face, "the quick brown fox jumps over the lazy dog", maxW)
	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, font.MeasureString(face, line).Ceil(), maxW, "line %q", line)
	}
}

func TestWrapShortTextSingleLine(t *testing.T) {
	face := testFace(t, 16)
	lines := wrap(face, "hello", 400)
	assert.Equal(t, []string{"hello"}, lines)
}

func TestWrapHonorsNewlines(t *testing.T) {
	face := testFace(t, 16)
	assert.Len(t, wrap(face, "one\ntwo", 400), 2)
	assert.Len(t, wrap(face, `one\ntwo`, 400), 2)
	assert.Empty(t, wrap(face, "", 400))
}

func TestParseHex(t *testing.T) {
	c, err := parseHex("#667eea")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x66, G: 0x7e, B: 0xea, A: 255}, c)

	for _, bad := range []string{"", "667eea", "#66", "#zzzzzz"} {
		_, err := parseHex(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestLoadTheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "themes.yaml")
	yaml := `
themes:
  quote:
    gradient: ["#1a1a2e", "#16213e"]
    title_color: "#FFFFFF"
    text_color: "#EEEEEE"
    accent_color: "#E94560"
    subtitle_color: "#A0A0C0"
    intro_title: "오늘의 명언"
  custom:
    gradient: ["#000000"]
    title_color: "#FFFFFF"
    text_color: "#FFFFFF"
    accent_color: "#FFD700"
    subtitle_color: "#CCCCCC"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	theme, err := LoadTheme(path, "quote")
	require.NoError(t, err)
	assert.Equal(t, "#E94560", theme.AccentColor)
	assert.Equal(t, "오늘의 명언", theme.IntroTitle)

	// Unknown names fall back to the custom entry.
	theme, err = LoadTheme(path, "weather")
	require.NoError(t, err)
	assert.Equal(t, "#FFD700", theme.AccentColor)

	// A missing file falls back to the default theme.
	theme, err = LoadTheme(filepath.Join(dir, "nope.yaml"), "quote")
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme(), theme)
}

func TestLoadThemeRejectsBadColors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "themes.yaml")
	yaml := `
themes:
  quote:
    gradient: ["notacolor"]
    title_color: "#FFFFFF"
    text_color: "#FFFFFF"
    accent_color: "#FFD700"
    subtitle_color: "#CCCCCC"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	_, err := LoadTheme(path, "quote")
	assert.Error(t, err)
}

func TestFillGradientEndpoints(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 8))
	fillGradient(img, []color.NRGBA{
		{R: 255, A: 255},
		{B: 255, A: 255},
	})

	top := img.RGBAAt(1, 0)
	assert.Equal(t, uint8(255), top.R)
	assert.Equal(t, uint8(0), top.B)

	bottom := img.RGBAAt(1, 7)
	assert.Greater(t, bottom.B, bottom.R)
}

func TestFillRoundedRectLeavesCorners(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	fillGradient(img, []color.NRGBA{{R: 255, G: 255, B: 255, A: 255}})
	fillRoundedRect(img, 0, 0, 40, 40, 10, color.NRGBA{A: 200})

	corner := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(255), corner.R, "corner pixel outside the radius stays untouched")

	center := img.RGBAAt(20, 20)
	assert.Less(t, center.R, uint8(255), "center is shaded")
}

func TestContrastRatio(t *testing.T) {
	assert.InDelta(t, 21.0, ContrastRatio(color.White, color.Black), 0.1)
	assert.InDelta(t, 1.0, ContrastRatio(color.White, color.White), 1e-9)
	assert.Greater(t,
		ContrastRatio(color.White, color.Black),
		ContrastRatio(color.NRGBA{R: 200, G: 200, B: 200, A: 255}, color.Black))
}

func testRasterizer(t *testing.T, qrURL string) *Rasterizer {
	t.Helper()
	r, err := NewRasterizer(Params{
		Width:  270,
		Height: 480,
		Theme:  DefaultTheme(),
		QRURL:  qrURL,
	})
	require.NoError(t, err)
	return r
}

func decodeSlide(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestRenderAllRoles(t *testing.T) {
	dir := t.TempDir()
	r := testRasterizer(t, "")

	cases := []struct {
		role Role
		text Text
	}{
		{RoleIntro, Text{Main: "Octopus Facts"}},
		{RoleContent, Text{Main: "Three hearts", Sub: "two for the gills"}},
		{RoleOutro, Text{Main: "See you tomorrow"}},
	}
	for i, c := range cases {
		path := filepath.Join(dir, "slide.png")
		slide, err := r.Render(c.role, c.text, i, path)
		require.NoError(t, err)
		assert.Equal(t, i, slide.Index)
		assert.Equal(t, c.role, slide.Role)
		assert.Equal(t, 270, slide.Width)
		assert.Equal(t, 480, slide.Height)

		img := decodeSlide(t, path)
		assert.Equal(t, 270, img.Bounds().Dx())
		assert.Equal(t, 480, img.Bounds().Dy())
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	r := testRasterizer(t, "")
	text := Text{Main: "Three hearts", Sub: "two for the gills"}

	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")
	_, err := r.Render(RoleContent, text, 1, pathA)
	require.NoError(t, err)
	_, err = r.Render(RoleContent, text, 1, pathB)
	require.NoError(t, err)

	a, err := os.ReadFile(pathA)
	require.NoError(t, err)
	b, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderOutroDrawsQR(t *testing.T) {
	dir := t.TempDir()
	r := testRasterizer(t, "https://youtube.com/@shorts")

	path := filepath.Join(dir, "outro.png")
	_, err := r.Render(RoleOutro, Text{Main: "구독!"}, 4, path)
	require.NoError(t, err)

	img := decodeSlide(t, path)
	b := img.Bounds()

	// The QR quiet zone puts pure white into the bottom third, which the
	// gradient theme never produces on its own.
	white := false
	for y := b.Max.Y * 2 / 3; y < b.Max.Y && !white; y++ {
		for x := 0; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if cr > 0xf000 && cg > 0xf000 && cb > 0xf000 {
				white = true
				break
			}
		}
	}
	assert.True(t, white, "expected QR code pixels in the bottom third")
}
