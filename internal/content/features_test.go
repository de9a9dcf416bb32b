package content_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/splitsignal/splitsignal/internal/content"
)

func TestExtractFeatures_Questions(t *testing.T) {
	tags := content.ExtractFeatures("What do you think? Have you tried this?")
	assert.Contains(t, tags, "Questions")
}

func TestExtractFeatures_CallToAction(t *testing.T) {
	tags := content.ExtractFeatures("Click here to learn more! Sign up today!")
	assert.Contains(t, tags, "Call to Action")
}

func TestExtractFeatures_CTAWordBoundary(t *testing.T) {
	// "tried" must not match the "try" CTA word.
	tags := content.ExtractFeatures("I tried something new yesterday.")
	assert.NotContains(t, tags, "Call to Action")
}

func TestExtractFeatures_Hashtags(t *testing.T) {
	tags := content.ExtractFeatures("Shipping day #golang #opensource")
	assert.Contains(t, tags, "Hashtags (2)")
}

func TestExtractFeatures_Emojis(t *testing.T) {
	tags := content.ExtractFeatures("We shipped it \U0001F680\U0001F389")
	assert.Contains(t, tags, "Emojis (2)")
}

func TestExtractFeatures_LinksAndMentions(t *testing.T) {
	tags := content.ExtractFeatures("Thanks @jordan for the writeup: https://example.com/post")
	assert.Contains(t, tags, "Links")
	assert.Contains(t, tags, "Mentions")
}

func TestExtractFeatures_LengthBuckets(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		bucket string
	}{
		{"short", strings.Repeat("a", 99), "Short (< 100 chars)"},
		{"medium lower edge", strings.Repeat("a", 100), "Medium (100-280 chars)"},
		{"medium upper edge", strings.Repeat("a", 279), "Medium (100-280 chars)"},
		{"long", strings.Repeat("a", 280), "Long (> 280 chars)"},
		{"empty", "", "Short (< 100 chars)"},
	}

	buckets := []string{"Short (< 100 chars)", "Medium (100-280 chars)", "Long (> 280 chars)"}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tags := content.ExtractFeatures(tc.text)
			assert.Contains(t, tags, tc.bucket)

			// Exactly one bucket, always.
			found := 0
			for _, b := range buckets {
				for _, tag := range tags {
					if tag == b {
						found++
					}
				}
			}
			assert.Equal(t, 1, found, "expected exactly one length bucket in %v", tags)
		})
	}
}

func TestExtractFeatures_MultiParagraph(t *testing.T) {
	text := "First thought.\n\nSecond thought.\n\nThird thought."
	tags := content.ExtractFeatures(text)
	assert.Contains(t, tags, "Multi-paragraph")

	assert.NotContains(t, content.ExtractFeatures("one\ntwo"), "Multi-paragraph")
}

func TestExtractFeatures_BulletPoints(t *testing.T) {
	for _, text := range []string{
		"What we shipped:\n- faster builds\n- smaller binaries",
		"Highlights:\n• one\n• two",
		"* item one\n* item two",
	} {
		tags := content.ExtractFeatures(text)
		assert.Contains(t, tags, "Bullet Points", "text: %q", text)
	}
}

func TestExtractFeatures_Statistics(t *testing.T) {
	for _, text := range []string{
		"Engagement grew 45% in a month",
		"Over 3 million people saw this",
		"We passed 10k followers",
	} {
		tags := content.ExtractFeatures(text)
		assert.Contains(t, tags, "Statistics", "text: %q", text)
	}

	assert.NotContains(t, content.ExtractFeatures("No numbers here"), "Statistics")
}

func TestExtractFeatures_TotalAndIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"\U0001F525\U0001F525\U0001F525",
		strings.Repeat("lorem ipsum dolor sit amet ", 400), // > 10k chars
	}

	for _, input := range inputs {
		first := content.ExtractFeatures(input)
		second := content.ExtractFeatures(input)
		assert.ElementsMatch(t, first, second, "input %.30q", input)
	}
}

func TestExtractFeatures_Deduplicated(t *testing.T) {
	tags := content.ExtractFeatures("Click and share and like this? Sign up? Follow us?")
	seen := map[string]int{}
	for _, tag := range tags {
		seen[tag]++
	}
	for tag, n := range seen {
		assert.Equal(t, 1, n, "tag %q appears %d times", tag, n)
	}
}
