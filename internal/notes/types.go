package notes

import (
	"encoding/json"
	"time"
)

// UntitledPlaceholder is shown for notes with an empty title. It is never stored.
const UntitledPlaceholder = "Untitled"

// Note is a single rich-text note. The JSON field names are the persisted and
// backup wire format.
type Note struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags"`
	ContentRich  string    `json:"contentRich"`
	ContentPlain string    `json:"contentPlain"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts the current field names and the older
// contentHTML/contentText pair.
func (n *Note) UnmarshalJSON(data []byte) error {
	type plain Note
	var wire struct {
		plain
		ContentHTML *string `json:"contentHTML"`
		ContentText *string `json:"contentText"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*n = Note(wire.plain)
	if n.ContentRich == "" && wire.ContentHTML != nil {
		n.ContentRich = *wire.ContentHTML
	}
	if n.ContentPlain == "" && wire.ContentText != nil {
		n.ContentPlain = *wire.ContentText
	}
	return nil
}

// HasTag reports whether the note carries tag exactly.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title *string
	// Tags replaces the tag list when non-nil. Pass an empty, non-nil slice to clear.
	Tags        []string
	ContentRich *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Tags == nil && p.ContentRich == nil
}

// Filter narrows the visible list. An empty Tag means no tag constraint and an
// empty SearchText means no text constraint; both combine with AND.
type Filter struct {
	SearchText string `json:"searchText"`
	Tag        string `json:"activeTag,omitempty"`
}

// IsZero reports whether no constraint is active.
func (f Filter) IsZero() bool {
	return f.SearchText == "" && f.Tag == ""
}
