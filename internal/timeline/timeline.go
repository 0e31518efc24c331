// Package timeline joins rendered segments into one continuous video
// stream, hard cuts by default, cross-faded when configured.
package timeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/solovev/shortsgen/internal/media"
	"github.com/solovev/shortsgen/internal/render"
)

type Timeline struct {
	Segments      []media.Segment
	TotalDuration float64
	Path          string
}

type Assembler struct {
	Params    render.Params
	Crossfade float64 // seconds of overlap between adjacent segments; 0 = hard cuts
	Run       media.Runner

	// probe seams, overridable in tests
	ProbeVideo    func(path string) (media.VideoParams, error)
	ProbeDuration func(path string) (float64, error)
}

func NewAssembler(p render.Params, crossfade float64, run media.Runner) *Assembler {
	return &Assembler{
		Params:        p,
		Crossfade:     crossfade,
		Run:           run,
		ProbeVideo:    media.ProbeVideo,
		ProbeDuration: media.Duration,
	}
}

// ExpectedTotal is the invariant the assembled file is checked against:
// the sum of segment durations minus the total cross-fade overlap.
func ExpectedTotal(segments []media.Segment, crossfade float64) float64 {
	var sum float64
	for _, s := range segments {
		sum += s.Duration
	}
	if crossfade > 0 && len(segments) > 1 {
		sum -= crossfade * float64(len(segments)-1)
	}
	return sum
}

// Assemble concatenates segments in order and probes the result. Segments
// whose geometry or frame rate disagree with the run parameters are
// re-encoded first; drift in the final duration is an error, not a warning.
func (a *Assembler) Assemble(ctx context.Context, segments []media.Segment, outPath string) (Timeline, error) {
	if len(segments) == 0 {
		return Timeline{}, fmt.Errorf("assemble: no segments")
	}

	normalized, err := a.normalize(ctx, segments)
	if err != nil {
		return Timeline{}, err
	}

	if a.Crossfade > 0 && len(normalized) > 1 {
		err = a.concatXfade(ctx, normalized, outPath)
	} else {
		err = a.concatCopy(ctx, normalized, outPath)
	}
	if err != nil {
		return Timeline{}, err
	}

	want := ExpectedTotal(normalized, a.Crossfade)
	got, err := a.ProbeDuration(outPath)
	if err != nil {
		return Timeline{}, fmt.Errorf("probe timeline: %w", err)
	}
	if !media.WithinFrame(a.Params.FPS, got, want) {
		return Timeline{}, &media.DurationMismatchError{
			Stage:     "timeline",
			Want:      want,
			Got:       got,
			Tolerance: media.FramePeriod(a.Params.FPS),
		}
	}

	return Timeline{Segments: normalized, TotalDuration: want, Path: outPath}, nil
}

// normalize re-encodes any segment that does not share the run's geometry
// and frame rate. A mismatch is a recoverable encoding detail, not a
// content error.
func (a *Assembler) normalize(ctx context.Context, segments []media.Segment) ([]media.Segment, error) {
	out := make([]media.Segment, len(segments))
	for i, seg := range segments {
		vp, err := a.ProbeVideo(seg.Path)
		if err != nil {
			return nil, fmt.Errorf("probe segment %d: %w", seg.SlideIndex, err)
		}
		if vp.Width == a.Params.Width && vp.Height == a.Params.Height && rateMatches(vp.FPS, a.Params.FPS) {
			out[i] = seg
			continue
		}

		log.Printf("[!] segment %d is %dx%d@%.2f, re-encoding to %dx%d@%d",
			seg.SlideIndex, vp.Width, vp.Height, vp.FPS, a.Params.Width, a.Params.Height, a.Params.FPS)

		normPath := strings.TrimSuffix(seg.Path, filepath.Ext(seg.Path)) + "_norm.mp4"
		args := []string{
			"-y",
			"-i", seg.Path,
			"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%d",
				a.Params.Width, a.Params.Height, a.Params.Width, a.Params.Height, a.Params.FPS),
			"-pix_fmt", "yuv420p",
			"-c:v", a.Params.Encoder,
		}
		args = append(args, qualityArgs(a.Params)...)
		args = append(args, "-an", normPath)
		if err := a.Run.Run(ctx, "ffmpeg", args...); err != nil {
			return nil, fmt.Errorf("normalize segment %d: %w", seg.SlideIndex, err)
		}
		seg.Path = normPath
		seg.Width = a.Params.Width
		seg.Height = a.Params.Height
		seg.FPS = a.Params.FPS
		out[i] = seg
	}
	return out, nil
}

// concatCopy joins identical-parameter segments without re-encoding via the
// concat demuxer.
func (a *Assembler) concatCopy(ctx context.Context, segments []media.Segment, outPath string) error {
	listPath := filepath.Join(filepath.Dir(outPath), "segments.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("segment list: %w", err)
	}
	for _, seg := range segments {
		absPath, _ := filepath.Abs(seg.Path)
		fmt.Fprintf(f, "file '%s'\n", absPath)
	}
	f.Close()

	return a.Run.Run(ctx, "ffmpeg",
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)
}

// concatXfade blends adjacent segments over the configured overlap. Offsets
// accumulate as each segment's duration minus the fade, so the math here is
// the source of the ExpectedTotal invariant.
func (a *Assembler) concatXfade(ctx context.Context, segments []media.Segment, outPath string) error {
	args := []string{"-y"}
	for _, seg := range segments {
		args = append(args, "-i", seg.Path)
	}

	var graph strings.Builder
	lastOut := "[0:v]"
	offset := 0.0
	for i := 1; i < len(segments); i++ {
		offset += segments[i-1].Duration - a.Crossfade
		outName := fmt.Sprintf("[v%d]", i)
		fmt.Fprintf(&graph, "%s[%d:v]xfade=transition=fade:duration=%f:offset=%f%s;",
			lastOut, i, a.Crossfade, offset, outName)
		lastOut = outName
	}

	args = append(args, "-filter_complex", strings.TrimSuffix(graph.String(), ";"))
	args = append(args, "-map", lastOut, "-pix_fmt", "yuv420p", "-c:v", a.Params.Encoder)
	args = append(args, qualityArgs(a.Params)...)
	args = append(args, "-an", outPath)

	return a.Run.Run(ctx, "ffmpeg", args...)
}

func qualityArgs(p render.Params) []string {
	switch p.Encoder {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", p.CRF*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", p.CRF)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", p.CRF), "-preset", p.Preset}
	}
}

func rateMatches(got float64, want int) bool {
	return got > float64(want)-0.01 && got < float64(want)+0.01
}
