package tts

import (
	"regexp"
	"strings"

	"github.com/solovev/shortsgen/internal/script"
)

var (
	spaceRun = regexp.MustCompile(`\s+`)
	commaRun = regexp.MustCompile(`,\s*,`)
)

// CleanText prepares display text for narration: newlines become short
// pauses, emoji disappear, and whitespace collapses. The voice reads what
// remains verbatim.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, `\n`, ", ")
	text = strings.ReplaceAll(text, "\n", ", ")
	text = script.StripEmoji(text)
	text = spaceRun.ReplaceAllString(text, " ")
	text = commaRun.ReplaceAllString(text, ",")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, ",")
	return strings.TrimSpace(text)
}
