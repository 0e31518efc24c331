package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30.0},
		{"30000/1001", 29.97},
		{"25", 25.0},
		{"0/0", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, parseFrameRate(tt.in), 0.01)
		})
	}
}

func TestRoundToFrame(t *testing.T) {
	// 5.512s at 30fps is 165.36 frames, which snaps to 165 frames = 5.5s.
	got := RoundToFrame(5.512, 30)
	assert.InDelta(t, 5.5, got, 1e-9)

	// Values already on the grid stay put.
	assert.InDelta(t, 3.2, RoundToFrame(3.2, 30), 1e-9)
	assert.InDelta(t, 0.3, RoundToFrame(0.3, 30), 1e-9)
}

func TestWithinFrame(t *testing.T) {
	require.True(t, WithinFrame(30, 16.4, 16.4))
	require.True(t, WithinFrame(30, 16.4, 16.4+1.0/30.0))
	require.False(t, WithinFrame(30, 16.4, 16.5))
	require.True(t, WithinFrame(60, 10.0, 10.016))
	require.False(t, WithinFrame(60, 10.0, 10.02))
}

func TestDurationMismatchError(t *testing.T) {
	err := &DurationMismatchError{Stage: "timeline", Want: 16.4, Got: 16.9, Tolerance: 1.0 / 30.0}
	assert.Contains(t, err.Error(), "timeline")
	assert.Contains(t, err.Error(), "16.900")
	assert.Contains(t, err.Error(), "16.400")
}
