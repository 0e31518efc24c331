package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solovev/shortsgen/internal/motion"
)

func testParams() Params {
	return Params{Width: 1080, Height: 1920, FPS: 30, Encoder: "libx264", Preset: "fast", CRF: 23}
}

func testPlanner() motion.Planner {
	return motion.Planner{OutWidth: 1080, OutHeight: 1920, ZoomMin: 1.0, ZoomMax: 1.15, MinAnimated: 0.5}
}

// fakeRunner records every invocation and fails according to a script.
type fakeRunner struct {
	calls [][]string
	errs  []error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if n := len(f.calls) - 1; n < len(f.errs) {
		return f.errs[n]
	}
	return nil
}

func (f *fakeRunner) filterOf(call int) string {
	args := f.calls[call]
	for i, a := range args {
		if a == "-vf" {
			return args[i+1]
		}
	}
	return ""
}

func exactProbe(d float64) func(string) (float64, error) {
	return func(string) (float64, error) { return d, nil }
}

func TestFrameCount(t *testing.T) {
	assert.Equal(t, 165, FrameCount(5.5, 30))
	assert.Equal(t, 9, FrameCount(0.3, 30))
	assert.Equal(t, 492, FrameCount(16.4, 30))
	assert.Equal(t, 1, FrameCount(0.001, 30), "never below one frame")
}

func TestBuildFilterAnimated(t *testing.T) {
	plan := testPlanner().Plan(2160, 3840, 5.0, 0, "content")
	filter := BuildFilter(plan, testParams())

	assert.Contains(t, filter, "scale=2160:3840", "supersampled prelude")
	assert.Contains(t, filter, "crop=2160:3840")
	assert.Contains(t, filter, "zoompan=z='")
	assert.Contains(t, filter, ":x='")
	assert.Contains(t, filter, ":y='")
	assert.Contains(t, filter, "s=1080x1920")
	assert.Contains(t, filter, "fps=30")
	// 150 frames -> progress denominator is the last frame index.
	assert.Contains(t, filter, "on/149")
	// Ease-in-out is spelled out in the expression.
	assert.Contains(t, filter, "pow(")

	t.Logf("filter: %s", filter)
}

func TestBuildFilterLinearEasing(t *testing.T) {
	plan := testPlanner().Plan(2160, 3840, 5.0, 0, "content")
	plan.Easing = motion.Linear
	filter := BuildFilter(plan, testParams())

	assert.Contains(t, filter, "clip(on/")
	assert.NotContains(t, filter, "pow(")
}

func TestBuildFilterStaticSkipsZoompan(t *testing.T) {
	plan := testPlanner().Plan(2160, 3840, 0.3, 1, "content")
	require.True(t, plan.IsStatic())

	filter := BuildFilter(plan, testParams())
	assert.NotContains(t, filter, "zoompan")
	assert.Contains(t, filter, "scale=1080:1920")
	assert.Contains(t, filter, "crop=1080:1920")
}

func TestBuildFilterPanHoldsZoomConstant(t *testing.T) {
	plan := testPlanner().Plan(2160, 3840, 5.0, 2, "content")
	require.Equal(t, motion.PanLeft, plan.Direction)

	filter := BuildFilter(plan, testParams())
	// Constant zoom appears as a plain reciprocal, x still ramps.
	assert.Contains(t, filter, "z='1/(0.869565)'")
	assert.Contains(t, filter, ":x='(")
}

func TestRenderFirstAttemptSucceeds(t *testing.T) {
	run := &fakeRunner{}
	r := New(testParams(), run)
	plan := testPlanner().Plan(2160, 3840, 5.5, 1, "content")
	r.Probe = exactProbe(plan.Duration)

	seg, err := r.Render(context.Background(), "slide_001.png", plan, "seg_001.mp4")
	require.NoError(t, err)
	require.Len(t, run.calls, 1)

	assert.Equal(t, 1, seg.SlideIndex)
	assert.Equal(t, "seg_001.mp4", seg.Path)
	assert.InDelta(t, 5.5, seg.Duration, 1e-9)
	assert.Equal(t, 1080, seg.Width)
	assert.Equal(t, 1920, seg.Height)
	assert.Equal(t, 30, seg.FPS)

	args := strings.Join(run.calls[0], " ")
	assert.Contains(t, args, "-loop 1")
	assert.Contains(t, args, "-framerate 30")
	assert.Contains(t, args, "-frames:v 165")
	assert.Contains(t, args, "-c:v libx264")
	assert.Contains(t, args, "-crf 23")
	assert.Contains(t, args, "-preset fast")
	assert.Contains(t, args, "-an")
}

func TestRenderFallsBackToStatic(t *testing.T) {
	run := &fakeRunner{errs: []error{errors.New("zoompan blew up")}}
	r := New(testParams(), run)
	plan := testPlanner().Plan(2160, 3840, 4.8, 2, "content")
	r.Probe = exactProbe(plan.Duration)

	seg, err := r.Render(context.Background(), "slide_002.png", plan, "seg_002.mp4")
	require.NoError(t, err)
	require.Len(t, run.calls, 2)

	assert.Contains(t, run.filterOf(0), "zoompan")
	assert.NotContains(t, run.filterOf(1), "zoompan", "fallback must not reuse the failed graph")
	assert.InDelta(t, 4.8, seg.Duration, 1e-9, "fallback keeps the slide duration")
}

func TestRenderFailsAfterFallback(t *testing.T) {
	run := &fakeRunner{errs: []error{errors.New("first"), errors.New("second")}}
	r := New(testParams(), run)
	plan := testPlanner().Plan(2160, 3840, 4.8, 2, "content")
	r.Probe = exactProbe(plan.Duration)

	_, err := r.Render(context.Background(), "slide_002.png", plan, "seg_002.mp4")
	require.Error(t, err)
	require.Len(t, run.calls, 2, "exactly one retry")

	var rErr *RenderError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, 2, rErr.SlideIndex)
}

func TestRenderDurationDriftCountsAsFailure(t *testing.T) {
	run := &fakeRunner{}
	r := New(testParams(), run)
	plan := testPlanner().Plan(2160, 3840, 5.0, 0, "content")

	// First probe drifts by half a second, the fallback lands exactly.
	probes := 0
	r.Probe = func(string) (float64, error) {
		probes++
		if probes == 1 {
			return 5.5, nil
		}
		return 5.0, nil
	}

	_, err := r.Render(context.Background(), "slide_000.png", plan, "seg_000.mp4")
	require.NoError(t, err)
	assert.Len(t, run.calls, 2)

	// Persistent drift fails the slide.
	run2 := &fakeRunner{}
	r2 := New(testParams(), run2)
	r2.Probe = exactProbe(99.0)
	_, err = r2.Render(context.Background(), "slide_000.png", plan, "seg_000.mp4")
	var rErr *RenderError
	require.ErrorAs(t, err, &rErr)
}
