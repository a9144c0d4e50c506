package notes

import "strings"

// TagSeparator splits the tags field and joins tags for display.
const TagSeparator = ","

// NormalizeTags trims every tag and drops empty ones. Order is preserved and
// duplicates are kept. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ParseTags splits a comma-separated tags field and normalizes the result.
func ParseTags(field string) []string {
	if field == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(field, TagSeparator))
}

// JoinTags renders tags as the editable comma-separated field.
func JoinTags(tags []string) string {
	return strings.Join(tags, TagSeparator+" ")
}
