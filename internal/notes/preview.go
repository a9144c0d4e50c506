package notes

import (
	"fmt"
	"strings"
	"time"
)

// DisplayTitle returns the title, or the placeholder for an empty one.
func DisplayTitle(n Note) string {
	if n.Title == "" {
		return UntitledPlaceholder
	}
	return n.Title
}

// ContentPreview returns at most maxChars characters of the plain-text
// projection, appending "..." when truncated.
func ContentPreview(n Note, maxChars int) string {
	if n.ContentPlain == "" || maxChars <= 0 {
		return n.ContentPlain
	}
	runes := []rune(n.ContentPlain)
	if len(runes) <= maxChars {
		return n.ContentPlain
	}
	return strings.TrimRight(string(runes[:maxChars]), " ") + "..."
}

// MetaLine renders the list metadata: "#tag #tag • <updated>".
func MetaLine(n Note, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	updated := n.UpdatedAt.In(loc).Format("2006-01-02 15:04")
	if len(n.Tags) == 0 {
		return updated
	}
	hashed := make([]string, len(n.Tags))
	for i, t := range n.Tags {
		hashed[i] = "#" + t
	}
	return strings.Join(hashed, " ") + " • " + updated
}

// CountLabel renders "1 note" / "N notes".
func CountLabel(count int) string {
	if count == 1 {
		return "1 note"
	}
	return fmt.Sprintf("%d notes", count)
}
