package notes

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// strictPolicy strips every element and keeps text content.
	strictPolicy = bluemonday.StrictPolicy()

	// blockTagRe matches block-level tags; a space is inserted before them so
	// words from adjacent blocks do not run together once tags are stripped.
	blockTagRe = regexp.MustCompile(`(?i)<(/?)(p|div|br|hr|li|ul|ol|h[1-6]|blockquote|pre|table|tr|td|th|section|article|header|footer)\b`)
)

// PlainText projects rich content to plain text for search matching.
// Tags are stripped, entities decoded and whitespace runs collapsed.
func PlainText(rich string) string {
	if rich == "" {
		return ""
	}
	spaced := blockTagRe.ReplaceAllString(rich, " <$1$2")
	stripped := html.UnescapeString(strictPolicy.Sanitize(spaced))
	return strings.Join(strings.Fields(stripped), " ")
}
