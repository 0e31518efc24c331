package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Video    VideoConfig    `yaml:"video"`
	Timing   TimingConfig   `yaml:"timing"`
	Motion   MotionConfig   `yaml:"motion"`
	Audio    AudioConfig    `yaml:"audio"`
	Script   ScriptConfig   `yaml:"script"`
	Slides   SlidesConfig   `yaml:"slides"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

type VideoConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FPS       int     `yaml:"fps"`
	Crossfade float64 `yaml:"crossfade"` // seconds; 0 = hard cuts
	Preset    string  `yaml:"preset"`
	CRF       int     `yaml:"crf"`
	Encoder   string  `yaml:"encoder"` // empty = auto-detect
}

type TimingConfig struct {
	SlideDuration float64 `yaml:"slide_duration"` // minimum display time, and the fallback when narration is off
	TailPadding   float64 `yaml:"tail_padding"`   // breathing room after narration ends
	MinAnimated   float64 `yaml:"min_animated"`   // below this a slide gets a static plan
}

type MotionConfig struct {
	ZoomMin    float64 `yaml:"zoom_min"`
	ZoomMax    float64 `yaml:"zoom_max"`
	FocalBiasX float64 `yaml:"focal_bias_x"` // -0.5..0.5, offset from image center
	FocalBiasY float64 `yaml:"focal_bias_y"`
	Seed       int64   `yaml:"seed"` // 0 = fixed variant cycle
}

type AudioConfig struct {
	Narration bool    `yaml:"narration"`
	Voice     string  `yaml:"voice"`
	Rate      string  `yaml:"rate"`
	MusicDir  string  `yaml:"music_dir"`
	MusicFile string  `yaml:"music_file"` // explicit track, overrides discovery
	DuckGain  float64 `yaml:"duck_gain"`
	FullGain  float64 `yaml:"full_gain"`
	Ramp      float64 `yaml:"ramp"` // gain crossfade ramp, seconds
}

type ScriptConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	ContentType string `yaml:"content_type"`
	Topic       string `yaml:"topic"`
	Slides      int    `yaml:"slides"` // content slides between intro and outro
}

type SlidesConfig struct {
	Theme      string `yaml:"theme"` // empty = theme named after the content type
	ThemesFile string `yaml:"themes_file"`
	FontFile   string `yaml:"font_file"`
	QRURL      string `yaml:"qr_url"`
}

type PipelineConfig struct {
	Concurrency int     `yaml:"concurrency"` // 0 = physical core count
	Retries     int     `yaml:"retries"`
	RetryDelay  float64 `yaml:"retry_delay"` // seconds
	RunTimeout  float64 `yaml:"run_timeout"` // seconds, 0 = unlimited
	OutputDir   string  `yaml:"output_dir"`
	Prefix      string  `yaml:"prefix"` // output file name prefix
	KeepScratch bool    `yaml:"keep_scratch"`
}

func Default() Config {
	return Config{
		Video: VideoConfig{
			Width:  1080,
			Height: 1920,
			FPS:    30,
			Preset: "fast",
			CRF:    23,
		},
		Timing: TimingConfig{
			SlideDuration: 3.0,
			TailPadding:   0.5,
			MinAnimated:   0.5,
		},
		Motion: MotionConfig{
			ZoomMin: 1.0,
			ZoomMax: 1.15,
		},
		Audio: AudioConfig{
			Narration: true,
			Voice:     "ko-female",
			Rate:      "+0%",
			MusicDir:  "assets/bgm",
			DuckGain:  0.15,
			FullGain:  0.6,
			Ramp:      0.8,
		},
		Script: ScriptConfig{
			Model:       "gemini-2.0-flash",
			ContentType: "knowledge",
			Slides:      3,
		},
		Pipeline: PipelineConfig{
			Retries:    3,
			RetryDelay: 2.0,
			RunTimeout: 900,
			OutputDir:  "output",
			Prefix:     "shorts",
		},
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ValidationError is a bad parameter caught before any generation or
// rendering starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (c *Config) Validate() error {
	v := c.Video
	switch {
	case v.FPS <= 0:
		return &ValidationError{"video.fps", "must be positive"}
	case v.Width <= 0 || v.Height <= 0:
		return &ValidationError{"video.width/height", "must be positive"}
	case v.Width%2 != 0 || v.Height%2 != 0:
		return &ValidationError{"video.width/height", "must be even for yuv420p"}
	case v.Width*16 != v.Height*9:
		return &ValidationError{"video.width/height", "output frame must be 9:16 vertical"}
	case v.Crossfade < 0:
		return &ValidationError{"video.crossfade", "must not be negative"}
	}

	t := c.Timing
	switch {
	case t.SlideDuration <= 0:
		return &ValidationError{"timing.slide_duration", "must be positive"}
	case t.TailPadding < 0:
		return &ValidationError{"timing.tail_padding", "must not be negative"}
	case t.MinAnimated < 0:
		return &ValidationError{"timing.min_animated", "must not be negative"}
	case v.Crossfade >= t.SlideDuration:
		return &ValidationError{"video.crossfade", "must be shorter than timing.slide_duration"}
	}

	m := c.Motion
	switch {
	case m.ZoomMin < 1.0:
		return &ValidationError{"motion.zoom_min", "must be at least 1.0"}
	case m.ZoomMax < m.ZoomMin:
		return &ValidationError{"motion.zoom_max", "must not be below zoom_min"}
	case m.ZoomMax > 2.0:
		return &ValidationError{"motion.zoom_max", "above 2.0 the crop window drops below half the frame"}
	case m.FocalBiasX < -0.5 || m.FocalBiasX > 0.5 || m.FocalBiasY < -0.5 || m.FocalBiasY > 0.5:
		return &ValidationError{"motion.focal_bias", "must be within [-0.5, 0.5]"}
	}

	a := c.Audio
	switch {
	case a.DuckGain < 0 || a.DuckGain > 1:
		return &ValidationError{"audio.duck_gain", "must be within [0, 1]"}
	case a.FullGain < 0 || a.FullGain > 1:
		return &ValidationError{"audio.full_gain", "must be within [0, 1]"}
	case a.Ramp < 0:
		return &ValidationError{"audio.ramp", "must not be negative"}
	}

	p := c.Pipeline
	switch {
	case p.Concurrency < 0:
		return &ValidationError{"pipeline.concurrency", "must not be negative"}
	case p.Retries < 0:
		return &ValidationError{"pipeline.retries", "must not be negative"}
	case p.RetryDelay < 0:
		return &ValidationError{"pipeline.retry_delay", "must not be negative"}
	case p.RunTimeout < 0:
		return &ValidationError{"pipeline.run_timeout", "must not be negative"}
	}

	if c.Script.Slides < 1 {
		return &ValidationError{"script.slides", "need at least one content slide"}
	}
	return nil
}
