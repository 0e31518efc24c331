// Package slides rasterizes the deck: themed gradient backgrounds with
// seeded decoration, a translucent card and wrapped text per slide role.
// Slides are drawn supersampled and downscaled for crisp glyph edges.
package slides

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/solovev/shortsgen/internal/system"
)

type Role string

const (
	RoleIntro   Role = "intro"
	RoleContent Role = "content"
	RoleOutro   Role = "outro"
)

// Text is what one slide displays. Main carries the intro title and the
// outro line for those roles; Sub is content-only.
type Text struct {
	Main string
	Sub  string
}

// Slide is a rendered artifact plus the facts the motion planner needs.
type Slide struct {
	Index  int
	Role   Role
	Path   string
	Width  int
	Height int
}

type Params struct {
	Width    int // output frame size
	Height   int
	Theme    Theme
	FontFile string
	QRURL    string // drawn on the outro when set
}

const (
	supersample = 2
	baseWidth   = 1080.0 // layout constants below are sized for this width

	outroSubline = "좋아요 & 구독 부탁드려요!"
)

// DefaultOutro is drawn and narrated when the script has no outro line.
const DefaultOutro = "다음에 또 만나요!"

type palette struct {
	gradient []color.NRGBA
	title    color.NRGBA
	text     color.NRGBA
	accent   color.NRGBA
	subtitle color.NRGBA
}

type Rasterizer struct {
	p       Params
	font    *sfnt.Font
	pal     palette
	canvasW int
	canvasH int
	scale   float64
}

func NewRasterizer(p Params) (*Rasterizer, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("slides: bad frame size %dx%d", p.Width, p.Height)
	}
	pal, err := parsePalette(p.Theme)
	if err != nil {
		return nil, err
	}
	fnt, err := loadFont(p.FontFile)
	if err != nil {
		return nil, err
	}

	r := &Rasterizer{
		p:       p,
		font:    fnt,
		pal:     pal,
		canvasW: p.Width * supersample,
		canvasH: p.Height * supersample,
	}
	r.scale = float64(r.canvasW) / baseWidth

	if ratio := ContrastRatio(pal.text, cardBackdrop(pal)); ratio < 4.5 {
		log.Printf("[!] theme text contrast %.1f:1 is below 4.5:1, text may be hard to read", ratio)
	}
	return r, nil
}

// Render draws one slide and writes it as a PNG at the frame resolution.
// Safe to call from several goroutines: font faces are created per call.
func (r *Rasterizer) Render(role Role, text Text, index int, outPath string) (Slide, error) {
	canvas := system.GetCanvas(r.canvasW, r.canvasH)
	defer system.PutCanvas(canvas)

	fillGradient(canvas, r.pal.gradient)
	decorate(canvas, r.pal.accent, r.px)

	var err error
	switch role {
	case RoleIntro:
		err = r.drawIntro(canvas, text.Main)
	case RoleOutro:
		err = r.drawOutro(canvas, text.Main)
	default:
		err = r.drawContent(canvas, text.Main, text.Sub)
	}
	if err != nil {
		return Slide{}, fmt.Errorf("slide %d: %w", index, err)
	}

	if err := r.save(canvas, outPath); err != nil {
		return Slide{}, fmt.Errorf("slide %d: %w", index, err)
	}
	return Slide{Index: index, Role: role, Path: outPath, Width: r.p.Width, Height: r.p.Height}, nil
}

func (r *Rasterizer) drawIntro(canvas *image.RGBA, title string) error {
	if title == "" {
		title = r.p.Theme.IntroTitle
	}
	titleFace, err := r.face(80)
	if err != nil {
		return err
	}
	dateFace, err := r.face(36)
	if err != nil {
		return err
	}

	pad := r.px(120)
	maxW := r.canvasW - 2*pad
	cx := r.canvasW / 2
	spacing := r.px(15)
	shadow := r.px(3)

	lines := wrap(titleFace, title, maxW)
	titleH := blockHeight(titleFace, lines, spacing)

	cardY := r.canvasH/2 - r.px(120)
	cardX := pad - r.px(40)
	r.card(canvas, cardX, cardY-r.px(40), r.canvasW-2*cardX, titleH+r.px(160))

	drawWrapped(canvas, titleFace, lines, cx, cardY, r.pal.title, spacing, shadow)

	date := time.Now().Format("2006.01.02")
	drawWrapped(canvas, dateFace, wrap(dateFace, date, maxW), cx, cardY+titleH+r.px(30), r.pal.subtitle, spacing, shadow)
	return nil
}

func (r *Rasterizer) drawContent(canvas *image.RGBA, main, sub string) error {
	mainFace, err := r.face(56)
	if err != nil {
		return err
	}

	pad := r.px(120)
	maxW := r.canvasW - 2*pad
	cx := r.canvasW / 2
	mainSpacing := r.px(20)
	spacing := r.px(15)
	shadow := r.px(3)

	mainLines := wrap(mainFace, main, maxW)
	mainH := blockHeight(mainFace, mainLines, mainSpacing)

	var subFace font.Face
	var subLines []string
	subH := 0
	if sub != "" {
		subFace, err = r.face(38)
		if err != nil {
			return err
		}
		subLines = wrap(subFace, sub, maxW)
		subH = blockHeight(subFace, subLines, spacing) + r.px(50)
	}

	totalH := mainH + subH
	cardY := r.canvasH/2 - totalH/2 - r.px(40)
	cardX := pad - r.px(40)
	r.card(canvas, cardX, cardY, r.canvasW-2*cardX, totalH+r.px(80))

	endY := drawWrapped(canvas, mainFace, mainLines, cx, cardY+r.px(40), r.pal.text, mainSpacing, shadow)
	if len(subLines) > 0 {
		drawWrapped(canvas, subFace, subLines, cx, endY+r.px(40), r.pal.subtitle, spacing, shadow)
	}
	return nil
}

func (r *Rasterizer) drawOutro(canvas *image.RGBA, text string) error {
	if text == "" {
		text = DefaultOutro
	}
	mainFace, err := r.face(52)
	if err != nil {
		return err
	}
	subFace, err := r.face(36)
	if err != nil {
		return err
	}

	pad := r.px(120)
	maxW := r.canvasW - 2*pad
	cx := r.canvasW / 2
	spacing := r.px(15)
	shadow := r.px(3)

	mainLines := wrap(mainFace, text, maxW)
	mainH := blockHeight(mainFace, mainLines, spacing)
	subLines := wrap(subFace, outroSubline, maxW)
	subH := blockHeight(subFace, subLines, spacing)

	cardY := r.canvasH/2 - r.px(120)
	cardX := pad - r.px(40)
	r.card(canvas, cardX, cardY-r.px(40), r.canvasW-2*cardX, mainH+subH+r.px(180))

	endY := drawWrapped(canvas, mainFace, mainLines, cx, cardY, r.pal.text, spacing, shadow)
	drawWrapped(canvas, subFace, subLines, cx, endY+r.px(40), r.pal.accent, spacing, shadow)

	if r.p.QRURL != "" {
		return r.drawQR(canvas)
	}
	return nil
}

// drawQR puts a QR code between the card and the bottom rule.
func (r *Rasterizer) drawQR(canvas *image.RGBA) error {
	q, err := qrcode.New(r.p.QRURL, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	q.BackgroundColor = color.White
	q.ForegroundColor = color.Black

	size := r.px(180)
	img := q.Image(size)
	x := (r.canvasW - size) / 2
	y := r.canvasH - r.px(160) - size
	draw.Draw(canvas, image.Rect(x, y, x+size, y+size), img, img.Bounds().Min, draw.Over)
	return nil
}

func (r *Rasterizer) card(canvas *image.RGBA, x, y, w, h int) {
	fillRoundedRect(canvas, x, y, w, h, r.px(30), color.NRGBA{A: 70})
}

func (r *Rasterizer) save(canvas *image.RGBA, outPath string) error {
	final := imaging.Resize(canvas, r.p.Width, r.p.Height, imaging.Lanczos)

	buf := system.GetEncodeBuffer()
	defer system.PutEncodeBuffer(buf)
	if err := png.Encode(buf, final); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write slide: %w", err)
	}
	return nil
}

// px scales a layout constant from the 1080-wide reference design to the
// actual canvas.
func (r *Rasterizer) px(v int) int {
	return int(float64(v)*r.scale + 0.5)
}

func (r *Rasterizer) face(size float64) (font.Face, error) {
	return opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size * r.scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func loadFont(path string) (*sfnt.Font, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			f, perr := opentype.Parse(data)
			if perr != nil {
				return nil, fmt.Errorf("parse font %s: %w", path, perr)
			}
			return f, nil
		}
		log.Printf("[!] font %s not readable (%v), falling back to Go Regular (no Hangul glyphs)", path, err)
	}
	return opentype.Parse(goregular.TTF)
}

func parsePalette(t Theme) (palette, error) {
	if err := t.validate(); err != nil {
		return palette{}, err
	}
	var pal palette
	for _, s := range t.Gradient {
		c, _ := parseHex(s)
		pal.gradient = append(pal.gradient, c)
	}
	pal.title, _ = parseHex(t.TitleColor)
	pal.text, _ = parseHex(t.TextColor)
	pal.accent, _ = parseHex(t.AccentColor)
	pal.subtitle, _ = parseHex(t.SubtitleColor)
	return pal, nil
}

// cardBackdrop approximates what the text actually sits on: the card shade
// composited over the middle of the gradient.
func cardBackdrop(pal palette) color.NRGBA {
	bg := pal.gradient[len(pal.gradient)/2]
	const a = 70
	blend := func(c uint8) uint8 {
		return uint8(uint32(c) * (255 - a) / 255)
	}
	return color.NRGBA{R: blend(bg.R), G: blend(bg.G), B: blend(bg.B), A: 255}
}
