package script

import "strings"

// Emoji and pictograph blocks, consolidated. Hangul (U+AC00..U+D7AF) must
// never fall inside these ranges.
var emojiRanges = []struct{ lo, hi rune }{
	{0x1F300, 0x1F5FF}, // symbols & pictographs
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F680, 0x1F6FF}, // transport & map
	{0x1F1E0, 0x1F1FF}, // flags
	{0x1F900, 0x1F9FF}, // supplemental
	{0x1FA00, 0x1FAFF}, // extended symbols
	{0x2600, 0x27BF},   // misc symbols + dingbats
	{0x200D, 0x200D},   // zero width joiner
	{0xFE0F, 0xFE0F},   // variation selector
}

// StripEmoji removes emoji from generated text: neither the slide fonts nor
// the narration voice can do anything useful with them.
func StripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng.lo && r <= rng.hi {
			return true
		}
	}
	return false
}
