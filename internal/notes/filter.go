package notes

import "strings"

// Matches reports whether n passes the filter: the tag constraint when set,
// and a case-insensitive substring match of the search text against title,
// any tag, or plain-text content.
func (f Filter) Matches(n Note) bool {
	if f.Tag != "" && !n.HasTag(f.Tag) {
		return false
	}
	if f.SearchText == "" {
		return true
	}
	q := strings.ToLower(f.SearchText)
	if strings.Contains(strings.ToLower(n.Title), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(n.ContentPlain), q)
}

// Visible returns the notes of collection passing f, in collection order.
func Visible(collection []Note, f Filter) []Note {
	if f.IsZero() {
		return collection
	}
	out := make([]Note, 0, len(collection))
	for _, n := range collection {
		if f.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}
