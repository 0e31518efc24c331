// Package render turns a slide image plus its motion plan into a timed
// video segment via ffmpeg.
package render

import (
	"context"
	"fmt"
	"log"

	"github.com/solovev/shortsgen/internal/media"
	"github.com/solovev/shortsgen/internal/motion"
)

// Params are the run-wide encoding settings. Every segment of a run is
// produced with the same values so the assembler can concatenate without
// re-encoding.
type Params struct {
	Width   int
	Height  int
	FPS     int
	Encoder string
	Preset  string
	CRF     int
}

// RenderError is a segment that failed both the animated attempt and the
// static fallback. The run aborts: a short with a missing slide is worse
// than no output at all.
type RenderError struct {
	SlideIndex int
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render slide %d: %v", e.SlideIndex, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

type Renderer struct {
	Params Params
	Run    media.Runner
	// Probe reads back a produced segment's duration; overridable in tests.
	Probe func(path string) (float64, error)
}

func New(p Params, run media.Runner) *Renderer {
	return &Renderer{Params: p, Run: run, Probe: media.Duration}
}

// Render encodes one segment. A failed attempt is retried once with a
// static full-frame render before the slide is declared failed. The
// produced file is probed back: duration drift beyond one frame period
// counts as a failed attempt, never as silent success.
func (r *Renderer) Render(ctx context.Context, imagePath string, plan motion.Plan, outPath string) (media.Segment, error) {
	err := r.attempt(ctx, imagePath, plan, outPath)
	if err != nil {
		log.Printf("[!] slide %d: render failed (%v), retrying with static fallback", plan.SlideIndex, err)
		err = r.attempt(ctx, imagePath, r.staticFallback(plan), outPath)
	}
	if err != nil {
		return media.Segment{}, &RenderError{SlideIndex: plan.SlideIndex, Err: err}
	}
	return media.Segment{
		SlideIndex: plan.SlideIndex,
		Path:       outPath,
		Duration:   plan.Duration,
		Width:      r.Params.Width,
		Height:     r.Params.Height,
		FPS:        r.Params.FPS,
	}, nil
}

func (r *Renderer) attempt(ctx context.Context, imagePath string, plan motion.Plan, outPath string) error {
	args := r.buildArgs(imagePath, plan, outPath)
	if err := r.Run.Run(ctx, "ffmpeg", args...); err != nil {
		return err
	}
	got, err := r.Probe(outPath)
	if err != nil {
		return fmt.Errorf("probe segment: %w", err)
	}
	if !media.WithinFrame(r.Params.FPS, got, plan.Duration) {
		return fmt.Errorf("segment duration %.3fs, want %.3fs", got, plan.Duration)
	}
	return nil
}

// staticFallback keeps the slide's duration but drops all motion, framing
// the full slide. It renders through plain scale/crop, avoiding the zoompan
// graph that just failed.
func (r *Renderer) staticFallback(p motion.Plan) motion.Plan {
	baseW, baseH := motion.BaseCrop(p.SourceWidth, p.SourceHeight, r.Params.Width, r.Params.Height)
	rect := motion.Rect{X: (1 - baseW) / 2, Y: (1 - baseH) / 2, W: baseW, H: baseH}
	p.Direction = motion.Static
	p.Easing = motion.Linear
	p.Start = rect
	p.End = rect
	return p
}

func (r *Renderer) buildArgs(imagePath string, plan motion.Plan, outPath string) []string {
	p := r.Params
	args := []string{
		"-y",
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", p.FPS),
		"-i", imagePath,
		"-vf", BuildFilter(plan, p),
		"-frames:v", fmt.Sprintf("%d", FrameCount(plan.Duration, p.FPS)),
		"-pix_fmt", "yuv420p",
		"-c:v", p.Encoder,
	}
	args = append(args, qualityArgs(p.Encoder, p.CRF, p.Preset)...)
	args = append(args, "-an", outPath)
	return args
}

func qualityArgs(encoder string, crf int, preset string) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox ignores -crf on most versions; use bitrate instead.
		return []string{"-b:v", fmt.Sprintf("%dk", crf*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", crf)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", crf), "-preset", preset}
	}
}
