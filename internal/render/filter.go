package render

import (
	"fmt"
	"math"

	"github.com/solovev/shortsgen/internal/motion"
)

// BuildFilter produces the -vf chain for one segment. The source is first
// normalized to a supersampled frame at the output aspect (scale up, center
// crop), then zoompan walks the crop window between the plan's rects. The
// 2x supersample keeps zoompan's integer crop steps from visibly jittering.
func BuildFilter(plan motion.Plan, p Params) string {
	superW, superH := p.Width*2, p.Height*2

	if plan.IsStatic() {
		// The fallback path stays off zoompan entirely: a plain scale and
		// center crop cannot fail the way a bad motion expression can.
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase:flags=lanczos,crop=%d:%d",
			p.Width, p.Height, p.Width, p.Height)
	}

	frames := FrameCount(plan.Duration, p.FPS)
	progress := progressExpr(plan.Easing, frames)

	start := toCropSpace(plan.Start, plan.SourceWidth, plan.SourceHeight, p.Width, p.Height)
	end := toCropSpace(plan.End, plan.SourceWidth, plan.SourceHeight, p.Width, p.Height)

	// Zoom is the reciprocal of the crop width, so interpolating the width
	// keeps the filter on exactly the same trajectory as motion.RectAt.
	zExpr := fmt.Sprintf("1/(%s)", rampExpr(start.W, end.W, progress, ""))
	xExpr := rampExpr(start.X, end.X, progress, "*iw")
	yExpr := rampExpr(start.Y, end.Y, progress, "*ih")

	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase:flags=lanczos,crop=%d:%d,"+
			"zoompan=z='%s':x='%s':y='%s':d=1:s=%dx%d:fps=%d",
		superW, superH, superW, superH,
		zExpr, xExpr, yExpr, p.Width, p.Height, p.FPS)
}

// FrameCount is the exact number of output frames for a duration, the unit
// the duration invariant is checked in.
func FrameCount(duration float64, fps int) int {
	n := int(math.Round(duration * float64(fps)))
	if n < 1 {
		n = 1
	}
	return n
}

// progressExpr yields eased progress 0..1 as a function of the output frame
// counter. The easing is spelled out in the expression itself so the curve
// in the artifact always matches the plan's declared easing.
func progressExpr(e motion.Easing, frames int) string {
	denom := frames - 1
	if denom < 1 {
		denom = 1
	}
	linear := fmt.Sprintf("clip(on/%d,0,1)", denom)
	if e != motion.EaseInOut {
		return linear
	}
	// Ease-in-out cubic; st/ld evaluates the linear progress once.
	return fmt.Sprintf("if(lt(st(0,%s),0.5),4*pow(ld(0),3),1-pow(2-2*ld(0),3)/2)", linear)
}

// rampExpr interpolates a value from a to b over the progress expression,
// collapsing to a constant when the endpoints agree (pans keep zoom fixed,
// zooms keep one axis fixed).
func rampExpr(a, b float64, progress, scale string) string {
	if math.Abs(b-a) < 1e-9 {
		if scale == "" {
			return fmt.Sprintf("%.6f", a)
		}
		return fmt.Sprintf("%.6f%s", a, scale)
	}
	return fmt.Sprintf("(%.6f+(%.6f)*(%s))%s", a, b-a, progress, scale)
}

// toCropSpace re-expresses a source-normalized rect in the coordinates of
// the aspect-normalized frame the filter prelude produces. For slide images
// rendered at the output aspect this is the identity.
func toCropSpace(r motion.Rect, srcW, srcH, outW, outH int) motion.Rect {
	baseW, baseH := motion.BaseCrop(srcW, srcH, outW, outH)
	offX := (1 - baseW) / 2
	offY := (1 - baseH) / 2
	return motion.Rect{
		X: (r.X - offX) / baseW,
		Y: (r.Y - offY) / baseH,
		W: r.W / baseW,
		H: r.H / baseH,
	}
}

