// Package audio builds the final soundtrack: narration clips joined on the
// timeline grid, background music looped and ducked underneath, or silence
// when a run has neither.
package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/solovev/shortsgen/internal/media"
)

// Clip is one slide's narration artifact together with the slide's resolved
// display duration. The clip itself is usually shorter; the mixer pads the
// difference with silence so the narration track stays on the video grid.
type Clip struct {
	SlideIndex int
	Path       string
	Duration   float64
}

type Track struct {
	Path         string
	Duration     float64
	HasNarration bool
	HasMusic     bool
}

type Mixer struct {
	FPS       int     // tolerance grid for the hard duration check
	Crossfade float64 // narration overlap, mirrors the video cross-fade
	DuckGain  float64 // music level under narration
	FullGain  float64 // music level when narration is disabled
	Ramp      float64 // seconds of gain ramp at track edges
	Run       media.Runner
	Probe     func(path string) (float64, error)
}

func NewMixer(fps int, crossfade, duckGain, fullGain, ramp float64, run media.Runner) *Mixer {
	return &Mixer{
		FPS:       fps,
		Crossfade: crossfade,
		DuckGain:  duckGain,
		FullGain:  fullGain,
		Ramp:      ramp,
		Run:       run,
		Probe:     media.Duration,
	}
}

// NarrationLength is the length of the concatenated narration track:
// per-slide display durations, overlapped when cross-fades are configured.
func NarrationLength(clips []Clip, crossfade float64) float64 {
	var sum float64
	for _, c := range clips {
		sum += c.Duration
	}
	if crossfade > 0 && len(clips) > 1 {
		sum -= crossfade * float64(len(clips)-1)
	}
	return sum
}

// Mix produces the run's audio track as an intermediate WAV (PCM carries no
// encoder priming, so its duration is exact). Narration drift against the
// target duration is the classic source of audio/video desync and fails the
// run rather than being absorbed.
func (m *Mixer) Mix(ctx context.Context, clips []Clip, musicPath string, target float64, outPath string) (Track, error) {
	hasNarration := len(clips) > 0
	for _, c := range clips {
		if c.Path == "" {
			return Track{}, fmt.Errorf("mix: clip %d has no narration artifact", c.SlideIndex)
		}
	}

	if hasNarration {
		want := NarrationLength(clips, m.Crossfade)
		if !media.WithinFrame(m.FPS, want, target) {
			return Track{}, &media.DurationMismatchError{
				Stage:     "narration",
				Want:      target,
				Got:       want,
				Tolerance: media.FramePeriod(m.FPS),
			}
		}
	}

	var err error
	switch {
	case hasNarration:
		err = m.mixNarration(ctx, clips, musicPath, target, outPath)
	case musicPath != "":
		err = m.musicOnly(ctx, musicPath, target, outPath)
	default:
		err = m.silence(ctx, target, outPath)
	}
	if err != nil {
		return Track{}, err
	}

	got, err := m.Probe(outPath)
	if err != nil {
		return Track{}, fmt.Errorf("probe audio track: %w", err)
	}
	if !media.WithinFrame(m.FPS, got, target) {
		return Track{}, &media.DurationMismatchError{
			Stage:     "audio",
			Want:      target,
			Got:       got,
			Tolerance: media.FramePeriod(m.FPS),
		}
	}

	return Track{
		Path:         outPath,
		Duration:     target,
		HasNarration: hasNarration,
		HasMusic:     musicPath != "",
	}, nil
}

func (m *Mixer) mixNarration(ctx context.Context, clips []Clip, musicPath string, target float64, outPath string) error {
	args := []string{"-y"}
	for _, c := range clips {
		args = append(args, "-i", c.Path)
	}
	musicIndex := -1
	if musicPath != "" {
		musicIndex = len(clips)
		args = append(args, "-stream_loop", "-1", "-i", musicPath)
	}

	var graph strings.Builder

	// Pad every clip to its slide's display duration, then trim: the
	// narration track must land on exactly the same grid as the video.
	for i, c := range clips {
		fmt.Fprintf(&graph, "[%d:a]aresample=44100,aformat=channel_layouts=stereo,apad=whole_dur=%f,atrim=0:%f[n%d];",
			i, c.Duration, c.Duration, i)
	}

	narration := "[n0]"
	switch {
	case len(clips) > 1 && m.Crossfade > 0:
		last := "[n0]"
		for i := 1; i < len(clips); i++ {
			out := fmt.Sprintf("[nx%d]", i)
			fmt.Fprintf(&graph, "%s[n%d]acrossfade=d=%f:c1=tri:c2=tri%s;", last, i, m.Crossfade, out)
			last = out
		}
		narration = last
	case len(clips) > 1:
		for i := 0; i < len(clips); i++ {
			fmt.Fprintf(&graph, "[n%d]", i)
		}
		fmt.Fprintf(&graph, "concat=n=%d:v=0:a=1[nar];", len(clips))
		narration = "[nar]"
	}

	mapped := narration
	if musicIndex != -1 {
		fmt.Fprintf(&graph, "[%d:a]aresample=44100,aformat=channel_layouts=stereo,atrim=0:%f,%s[mus];",
			musicIndex, target, volumeOption(m.DuckGain, m.Ramp, target))
		fmt.Fprintf(&graph, "%s[mus]amix=inputs=2:duration=first:normalize=0[mix]", narration)
		mapped = "[mix]"
	}

	args = append(args, "-filter_complex", strings.TrimSuffix(graph.String(), ";"))
	args = append(args, "-map", mapped, "-c:a", "pcm_s16le", outPath)
	return m.Run.Run(ctx, "ffmpeg", args...)
}

func (m *Mixer) musicOnly(ctx context.Context, musicPath string, target float64, outPath string) error {
	graph := fmt.Sprintf("[0:a]aresample=44100,aformat=channel_layouts=stereo,atrim=0:%f,%s[mus]",
		target, volumeOption(m.FullGain, m.Ramp, target))
	return m.Run.Run(ctx, "ffmpeg",
		"-y",
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", graph,
		"-map", "[mus]",
		"-c:a", "pcm_s16le",
		outPath,
	)
}

func (m *Mixer) silence(ctx context.Context, target float64, outPath string) error {
	return m.Run.Run(ctx, "ffmpeg",
		"-y",
		"-f", "lavfi",
		"-t", fmt.Sprintf("%f", target),
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:a", "pcm_s16le",
		outPath,
	)
}

// volumeOption writes the music gain envelope: the configured level with
// ramps at the track edges so the music never clicks in or cuts off hard.
func volumeOption(gain, ramp, total float64) string {
	if ramp <= 0 {
		return fmt.Sprintf("volume=%.4f", gain)
	}
	if total < 2*ramp {
		ramp = total * 0.1
	}
	return fmt.Sprintf("volume='%.4f*(if(lte(t,%f), 0.1 + 0.9*(t/%f), if(gte(t, %f), (%f-t)/%f, 1.0)))':eval=frame",
		gain, ramp, ramp, total-ramp, total, ramp)
}
