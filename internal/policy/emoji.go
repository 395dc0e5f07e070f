package policy

import "strings"

// emojiRanges covers the Unicode emoji blocks the tone rules care about.
var emojiRanges = [][2]rune{
	{0x1F300, 0x1F5FF}, // misc symbols and pictographs
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F680, 0x1F6FF}, // transport and map symbols
	{0x1F900, 0x1F9FF}, // supplemental symbols and pictographs
	{0x1FA70, 0x1FAFF}, // symbols and pictographs extended-A
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x2600, 0x26FF},   // misc symbols
	{0x2700, 0x27BF},   // dingbats
}

// IsEmoji reports whether a rune falls in one of the emoji blocks.
func IsEmoji(r rune) bool {
	for _, rng := range emojiRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// CountEmoji returns the number of emoji code points in text.
func CountEmoji(text string) int {
	count := 0
	for _, r := range text {
		if IsEmoji(r) {
			count++
		}
	}
	return count
}

// StripEmoji removes all emoji code points from text and returns the cleaned
// text plus the number of code points removed.
func StripEmoji(text string) (string, int) {
	removed := 0
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if IsEmoji(r) {
			removed++
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String(), removed
}
