package slides

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"
)

// Theme is the visual identity of one content type: gradient background,
// text palette and an accent used for decoration.
type Theme struct {
	Gradient      []string `yaml:"gradient"`
	TitleColor    string   `yaml:"title_color"`
	TextColor     string   `yaml:"text_color"`
	AccentColor   string   `yaml:"accent_color"`
	SubtitleColor string   `yaml:"subtitle_color"`
	Emoji         string   `yaml:"emoji"`
	IntroTitle    string   `yaml:"intro_title"`
}

type themesFile struct {
	Themes map[string]Theme `yaml:"themes"`
}

// DefaultTheme is used when no themes file is configured.
func DefaultTheme() Theme {
	return Theme{
		Gradient:      []string{"#667eea", "#764ba2"},
		TitleColor:    "#FFFFFF",
		TextColor:     "#FFFFFF",
		AccentColor:   "#FFD700",
		SubtitleColor: "#D0D0FF",
		Emoji:         "✨",
		IntroTitle:    "오늘의 정보",
	}
}

// LoadTheme picks the theme named name from the themes file, falling back to
// the file's "custom" entry and finally to the built-in default. A missing
// file is not an error; a present but broken one is.
func LoadTheme(path, name string) (Theme, error) {
	if path == "" {
		return DefaultTheme(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTheme(), nil
		}
		return Theme{}, fmt.Errorf("read themes: %w", err)
	}

	var file themesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Theme{}, fmt.Errorf("parse themes: %w", err)
	}

	theme, ok := file.Themes[name]
	if !ok {
		theme, ok = file.Themes["custom"]
	}
	if !ok {
		return DefaultTheme(), nil
	}
	if err := theme.validate(); err != nil {
		return Theme{}, fmt.Errorf("theme %q: %w", name, err)
	}
	return theme, nil
}

func (t Theme) validate() error {
	if len(t.Gradient) == 0 {
		return fmt.Errorf("gradient needs at least one color")
	}
	colors := append([]string{t.TitleColor, t.TextColor, t.AccentColor, t.SubtitleColor}, t.Gradient...)
	for _, c := range colors {
		if _, err := parseHex(c); err != nil {
			return err
		}
	}
	return nil
}

// parseHex reads a #RRGGBB color.
func parseHex(s string) (color.NRGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("bad color %q, want #RRGGBB", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
