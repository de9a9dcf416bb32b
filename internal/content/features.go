// Package content derives structural and stylistic feature tags from
// post text, for comparing what winning variants do differently from
// losing ones.
package content

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	hashtagRe   = regexp.MustCompile(`#\w+`)
	linkRe      = regexp.MustCompile(`https?://\S+`)
	mentionRe   = regexp.MustCompile(`@\w+`)
	bulletRe    = regexp.MustCompile(`(?m)^[ \t]*[-•*]`)
	statisticRe = regexp.MustCompile(`(?i)\d+\s*%|\d+\s*(million|billion|thousand|k|m|b)\b`)
	ctaRe       = regexp.MustCompile(`(?i)\b(click|learn|read|check|discover|try|get|join|sign|subscribe|follow|share|comment|like)\b`)
)

// Length bucket boundaries, in characters.
const (
	shortMax  = 100
	mediumMax = 280
)

// ExtractFeatures returns the set of feature tags present in text,
// deduplicated. It is total and pure: it never fails, and identical
// input always yields the same tag set. Tag order is not part of the
// contract.
func ExtractFeatures(text string) []string {
	var tags []string

	if n := countEmojis(text); n > 0 {
		tags = append(tags, fmt.Sprintf("Emojis (%d)", n))
	}
	if n := len(hashtagRe.FindAllString(text, -1)); n > 0 {
		tags = append(tags, fmt.Sprintf("Hashtags (%d)", n))
	}
	if strings.Contains(text, "?") {
		tags = append(tags, "Questions")
	}
	if ctaRe.MatchString(text) {
		tags = append(tags, "Call to Action")
	}
	if linkRe.MatchString(text) {
		tags = append(tags, "Links")
	}
	if mentionRe.MatchString(text) {
		tags = append(tags, "Mentions")
	}

	// Exactly one length bucket, always.
	switch length := len([]rune(text)); {
	case length < shortMax:
		tags = append(tags, "Short (< 100 chars)")
	case length < mediumMax:
		tags = append(tags, "Medium (100-280 chars)")
	default:
		tags = append(tags, "Long (> 280 chars)")
	}

	if strings.Count(text, "\n") > 2 {
		tags = append(tags, "Multi-paragraph")
	}
	if bulletRe.MatchString(text) {
		tags = append(tags, "Bullet Points")
	}
	if statisticRe.MatchString(text) {
		tags = append(tags, "Statistics")
	}

	return dedupe(tags)
}

// countEmojis counts runes in the common emoji blocks.
func countEmojis(text string) int {
	count := 0
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1F5FF, // symbols and pictographs
			r >= 0x1F600 && r <= 0x1F64F, // emoticons
			r >= 0x1F680 && r <= 0x1F6FF, // transport and map
			r >= 0x1F900 && r <= 0x1F9FF, // supplemental symbols
			r >= 0x1FA70 && r <= 0x1FAFF, // extended pictographs
			r >= 0x2600 && r <= 0x26FF, // miscellaneous symbols
			r >= 0x2700 && r <= 0x27BF: // dingbats
			count++
		}
	}
	return count
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
