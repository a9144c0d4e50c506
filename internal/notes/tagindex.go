package notes

import (
	"fmt"
	"sort"
)

// AllTagsLabel is the pseudo-entry that clears the tag filter.
const AllTagsLabel = "All"

// TagIndex maps a tag to the number of notes carrying it.
type TagIndex map[string]int

// BuildTagIndex counts, for every tag, the notes that contain it. A note
// contributes at most one to each distinct tag it holds.
func BuildTagIndex(collection []Note) TagIndex {
	idx := make(TagIndex)
	for _, n := range collection {
		seen := make(map[string]bool, len(n.Tags))
		for _, t := range n.Tags {
			if seen[t] {
				continue
			}
			seen[t] = true
			idx[t]++
		}
	}
	return idx
}

// Sorted returns the tags in lexicographic order.
func (idx TagIndex) Sorted() []string {
	tags := make([]string, 0, len(idx))
	for t := range idx {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// TagEntry is one row of the tag list.
type TagEntry struct {
	// Tag is empty for the "All" entry.
	Tag    string `json:"tag"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Active bool   `json:"active"`
}

// TagEntries returns the "All" entry followed by every tag in lexicographic
// order. "All" is active exactly when activeTag is empty.
func TagEntries(idx TagIndex, activeTag string) []TagEntry {
	entries := make([]TagEntry, 0, len(idx)+1)
	entries = append(entries, TagEntry{
		Label:  AllTagsLabel,
		Active: activeTag == "",
	})
	for _, t := range idx.Sorted() {
		entries = append(entries, TagEntry{
			Tag:    t,
			Label:  fmt.Sprintf("%s (%d)", t, idx[t]),
			Count:  idx[t],
			Active: t == activeTag,
		})
	}
	return entries
}
