package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1080, cfg.Video.Width)
	assert.Equal(t, 1920, cfg.Video.Height)
	assert.Equal(t, 30, cfg.Video.FPS)
	assert.True(t, cfg.Audio.Narration)
}

func TestValidateRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero fps", func(c *Config) { c.Video.FPS = 0 }, "video.fps"},
		{"odd width", func(c *Config) { c.Video.Width = 1081; c.Video.Height = 1920 }, "video.width/height"},
		{"wrong aspect", func(c *Config) { c.Video.Width = 1080; c.Video.Height = 1080 }, "video.width/height"},
		{"negative crossfade", func(c *Config) { c.Video.Crossfade = -0.5 }, "video.crossfade"},
		{"crossfade eats slide", func(c *Config) { c.Video.Crossfade = 3.0 }, "video.crossfade"},
		{"zoom below 1", func(c *Config) { c.Motion.ZoomMin = 0.8 }, "motion.zoom_min"},
		{"inverted zoom range", func(c *Config) { c.Motion.ZoomMax = 1.0; c.Motion.ZoomMin = 1.2 }, "motion.zoom_max"},
		{"zoom too deep", func(c *Config) { c.Motion.ZoomMax = 2.5 }, "motion.zoom_max"},
		{"focal bias out of range", func(c *Config) { c.Motion.FocalBiasX = 0.7 }, "motion.focal_bias"},
		{"duck gain above 1", func(c *Config) { c.Audio.DuckGain = 1.5 }, "audio.duck_gain"},
		{"negative ramp", func(c *Config) { c.Audio.Ramp = -1 }, "audio.ramp"},
		{"zero slide duration", func(c *Config) { c.Timing.SlideDuration = 0 }, "timing.slide_duration"},
		{"negative retries", func(c *Config) { c.Pipeline.Retries = -1 }, "pipeline.retries"},
		{"no content slides", func(c *Config) { c.Script.Slides = 0 }, "script.slides"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
video:
  fps: 60
audio:
  narration: false
  duck_gain: 0.2
script:
  topic: "deep sea creatures"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden fields.
	assert.Equal(t, 60, cfg.Video.FPS)
	assert.False(t, cfg.Audio.Narration)
	assert.InDelta(t, 0.2, cfg.Audio.DuckGain, 1e-9)
	assert.Equal(t, "deep sea creatures", cfg.Script.Topic)

	// Absent fields keep their defaults.
	assert.Equal(t, 1080, cfg.Video.Width)
	assert.InDelta(t, 0.6, cfg.Audio.FullGain, 1e-9)
	assert.Equal(t, "shorts", cfg.Pipeline.Prefix)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
