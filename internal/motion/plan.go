// Package motion computes the pan/zoom trajectory a slide's camera follows
// over its display duration. Plans are pure data: the renderer turns them
// into filter expressions, and they round-trip through YAML for replay.
package motion

import (
	"fmt"
	"math"
)

// Rect is a crop window in normalized source-image coordinates: X,Y is the
// top-left corner, W,H the size, all as fractions of the image dimensions.
type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

type Direction string

const (
	ZoomIn   Direction = "zoom-in"
	ZoomOut  Direction = "zoom-out"
	PanLeft  Direction = "pan-left"
	PanRight Direction = "pan-right"
	Static   Direction = "static"
)

type Easing string

const (
	Linear    Easing = "linear"
	EaseInOut Easing = "ease-in-out"
)

// Plan describes one slide's camera move: where the crop window starts,
// where it ends, and how progress is eased in between. Duration always
// equals the owning slide's resolved duration.
type Plan struct {
	SlideIndex   int       `yaml:"slide"`
	SourceWidth  int       `yaml:"source_width"`
	SourceHeight int       `yaml:"source_height"`
	Direction    Direction `yaml:"direction"`
	Easing       Easing    `yaml:"easing"`
	Start        Rect      `yaml:"start"`
	End          Rect      `yaml:"end"`
	Duration     float64   `yaml:"duration"`
}

// IsStatic reports whether the camera never moves.
func (p Plan) IsStatic() bool {
	return p.Direction == Static || p.Start == p.End
}

// Validate checks the invariants the renderer relies on: both rects inside
// the unit square, and both preserving the target output aspect ratio when
// mapped back to source pixels.
func (p Plan) Validate(outWidth, outHeight int) error {
	if p.Duration <= 0 {
		return fmt.Errorf("plan %d: duration %.3f not positive", p.SlideIndex, p.Duration)
	}
	if p.SourceWidth <= 0 || p.SourceHeight <= 0 {
		return fmt.Errorf("plan %d: missing source dimensions", p.SlideIndex)
	}
	for name, r := range map[string]Rect{"start": p.Start, "end": p.End} {
		if r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("plan %d: %s rect is empty", p.SlideIndex, name)
		}
		const eps = 1e-6
		if r.X < -eps || r.Y < -eps || r.X+r.W > 1+eps || r.Y+r.H > 1+eps {
			return fmt.Errorf("plan %d: %s rect %+v outside image bounds", p.SlideIndex, name, r)
		}
		cropAspect := (r.W * float64(p.SourceWidth)) / (r.H * float64(p.SourceHeight))
		outAspect := float64(outWidth) / float64(outHeight)
		if math.Abs(cropAspect-outAspect) > 1e-3 {
			return fmt.Errorf("plan %d: %s rect aspect %.4f, want %.4f", p.SlideIndex, name, cropAspect, outAspect)
		}
	}
	return nil
}

// RectAt interpolates the crop window at time t (0..Duration) using the
// plan's easing. Out-of-range times clamp to the endpoints.
func RectAt(p Plan, t float64) Rect {
	if p.IsStatic() || p.Duration <= 0 {
		return p.Start
	}
	progress := t / p.Duration
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	e := Ease(p.Easing, progress)
	return Rect{
		X: lerp(p.Start.X, p.End.X, e),
		Y: lerp(p.Start.Y, p.End.Y, e),
		W: lerp(p.Start.W, p.End.W, e),
		H: lerp(p.Start.H, p.End.H, e),
	}
}

// Ease maps linear progress (0..1) through the named easing curve. The
// curve is an explicit plan field, not an implementation detail: switching
// it materially changes perceived motion.
func Ease(e Easing, p float64) float64 {
	switch e {
	case EaseInOut:
		return easeInOutCubic(p)
	default:
		return p
	}
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
