package media

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Segment is one rendered slide clip. All segments of a run share the same
// Width/Height/FPS so the assembler can join them without re-encoding.
type Segment struct {
	SlideIndex int
	Path       string
	Duration   float64
	Width      int
	Height     int
	FPS        int
}

// VideoParams are the stream properties the assembler compares across
// segments before concatenation.
type VideoParams struct {
	Width    int
	Height   int
	FPS      float64
	Duration float64
}

type probeInfo struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// AudioDuration probes an audio artifact and returns its playable duration
// in seconds (ffprobe reports microsecond precision). A file that cannot be
// probed yields *UnreadableAudioError; slide timing depends on this value,
// so callers treat it as fatal.
func AudioDuration(path string) (float64, error) {
	info, err := probe(path)
	if err != nil {
		return 0, &UnreadableAudioError{Path: path, Err: err}
	}
	d, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil || d <= 0 {
		return 0, &UnreadableAudioError{Path: path, Err: fmt.Errorf("no duration in probe output")}
	}
	return d, nil
}

// Duration returns the container duration of any probeable media file.
func Duration(path string) (float64, error) {
	info, err := probe(path)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	return d, nil
}

// ProbeVideo returns the first video stream's geometry and frame rate plus
// the container duration.
func ProbeVideo(path string) (VideoParams, error) {
	info, err := probe(path)
	if err != nil {
		return VideoParams{}, err
	}
	var p VideoParams
	if info.Format.Duration != "" {
		p.Duration, _ = strconv.ParseFloat(info.Format.Duration, 64)
	}
	for _, s := range info.Streams {
		if s.CodecType != "video" {
			continue
		}
		p.Width = s.Width
		p.Height = s.Height
		p.FPS = parseFrameRate(s.RFrameRate)
		return p, nil
	}
	return VideoParams{}, fmt.Errorf("%s: no video stream", path)
}

func probe(path string) (*probeInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var info probeInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return nil, fmt.Errorf("ffprobe %s: bad json: %w", path, err)
	}
	return &info, nil
}

// parseFrameRate converts ffprobe's rational rate ("30/1", "30000/1001")
// to frames per second.
func parseFrameRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		f, _ := strconv.ParseFloat(r, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// FramePeriod is the duration of one frame at the given rate, the tolerance
// used for every duration comparison in the pipeline.
func FramePeriod(fps int) float64 {
	return 1.0 / float64(fps)
}

// WithinFrame reports whether two durations agree within one frame period.
func WithinFrame(fps int, a, b float64) bool {
	return math.Abs(a-b) <= FramePeriod(fps)+1e-9
}

// RoundToFrame snaps a duration to a whole number of frame periods so that
// segment timing and audio timing land on the same grid.
func RoundToFrame(d float64, fps int) float64 {
	return math.Round(d*float64(fps)) / float64(fps)
}
