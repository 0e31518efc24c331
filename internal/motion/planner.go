package motion

import "math/rand"

// Planner turns slide facts (image size, duration, position, role) into
// Plans. It is deterministic: the same inputs and seed always produce the
// same plan, so runs are reproducible and fixtures stay stable.
type Planner struct {
	OutWidth    int
	OutHeight   int
	ZoomMin     float64
	ZoomMax     float64
	FocalBiasX  float64 // offset of the camera anchor from image center
	FocalBiasY  float64
	MinAnimated float64 // durations below this get a static plan
	Seed        int64   // 0 keeps the fixed variant cycle
}

// contentCycle is the variant rotation for content slides; alternating by
// slide index avoids every slide moving the same way.
var contentCycle = [4]Direction{ZoomIn, ZoomOut, PanLeft, PanRight}

// Plan computes the camera move for one slide. Roles: "intro" always zooms
// in, "outro" always zooms out, everything else walks the variant cycle by
// slide index.
func (pl Planner) Plan(imgW, imgH int, duration float64, index int, role string) Plan {
	p := Plan{
		SlideIndex:   index,
		SourceWidth:  imgW,
		SourceHeight: imgH,
		Duration:     duration,
		Easing:       EaseInOut,
	}
	baseW, baseH := pl.baseRect(imgW, imgH)

	// Below the animatable threshold motion reads as jitter, and with no
	// zoom headroom there is nothing to animate.
	if duration < pl.MinAnimated || pl.ZoomMax <= 1.0+1e-9 {
		p.Direction = Static
		p.Easing = Linear
		p.Start = cropAt(baseW, baseH, 1.0, 0.5, 0.5)
		p.End = p.Start
		return p
	}

	cx := 0.5 + pl.FocalBiasX
	cy := 0.5 + pl.FocalBiasY
	if pl.Seed != 0 {
		rng := rand.New(rand.NewSource(pl.Seed + int64(index)*7919))
		cx += (rng.Float64() - 0.5) * 0.04
		cy += (rng.Float64() - 0.5) * 0.04
	}

	switch p.Direction = pl.direction(index, role); p.Direction {
	case ZoomIn:
		p.Start = cropAt(baseW, baseH, pl.ZoomMin, cx, cy)
		p.End = cropAt(baseW, baseH, pl.ZoomMax, cx, cy)
	case ZoomOut:
		p.Start = cropAt(baseW, baseH, pl.ZoomMax, cx, cy)
		p.End = cropAt(baseW, baseH, pl.ZoomMin, cx, cy)
	case PanLeft, PanRight:
		w := baseW / pl.ZoomMax
		h := baseH / pl.ZoomMax
		y := clamp(cy-h/2, 0, 1-h)
		left := Rect{X: 0, Y: y, W: w, H: h}
		right := Rect{X: 1 - w, Y: y, W: w, H: h}
		if p.Direction == PanRight {
			p.Start, p.End = left, right
		} else {
			p.Start, p.End = right, left
		}
	}
	return p
}

func (pl Planner) direction(index int, role string) Direction {
	switch role {
	case "intro":
		return ZoomIn
	case "outro":
		return ZoomOut
	}
	offset := 0
	if pl.Seed != 0 {
		offset = rand.New(rand.NewSource(pl.Seed)).Intn(len(contentCycle))
	}
	return contentCycle[(index+offset)%len(contentCycle)]
}

func (pl Planner) baseRect(imgW, imgH int) (w, h float64) {
	return BaseCrop(imgW, imgH, pl.OutWidth, pl.OutHeight)
}

// BaseCrop is the largest centered crop (normalized) of a source image that
// matches the output aspect. Slide images are rendered at the output aspect,
// so this is usually the whole frame; arbitrary sources get letterbox-free
// center crops. The renderer maps plan rects through the same crop.
func BaseCrop(imgW, imgH, outW, outH int) (w, h float64) {
	outAspect := float64(outW) / float64(outH)
	imgAspect := float64(imgW) / float64(imgH)
	if imgAspect > outAspect {
		return outAspect / imgAspect, 1.0
	}
	return 1.0, imgAspect / outAspect
}

// cropAt places the aspect-correct crop for a zoom level around a center
// point, sliding it back inside the image when the anchor sits too close to
// an edge.
func cropAt(baseW, baseH, zoom, cx, cy float64) Rect {
	w := baseW / zoom
	h := baseH / zoom
	return Rect{
		X: clamp(cx-w/2, 0, 1-w),
		Y: clamp(cy-h/2, 0, 1-h),
		W: w,
		H: h,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
