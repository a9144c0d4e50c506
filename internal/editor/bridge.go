package editor

import (
	"strings"

	"github.com/kuitang/notekeep/internal/notes"
)

// Bridge keeps a Surface in step with the active note.
//
// Projection (note → surface) happens once per selection change so that
// in-progress edits are never overwritten. Snapshot (surface → patch) reads
// all three fields back for a commit.
type Bridge struct {
	surface   Surface
	projected string
	primed    bool
}

// NewBridge binds surface. Nothing is projected until the first Project call.
func NewBridge(surface Surface) *Bridge {
	return &Bridge{surface: surface}
}

// Surface returns the bound surface.
func (b *Bridge) Surface() Surface {
	return b.surface
}

// ProjectedID returns the id of the note currently on the surface, or "".
func (b *Bridge) ProjectedID() string {
	return b.projected
}

// Project puts n on the surface if it is not already there. A nil note
// clears and disables the surface. It reports whether the surface was written.
func (b *Bridge) Project(n *notes.Note) bool {
	id := ""
	if n != nil {
		id = n.ID
	}
	if b.primed && id == b.projected {
		return false
	}
	b.primed = true
	b.projected = id

	if n == nil {
		b.surface.SetTitle("")
		b.surface.SetTags("")
		b.surface.SetContent("")
		b.surface.SetEnabled(false)
		return true
	}

	b.surface.SetTitle(n.Title)
	b.surface.SetTags(notes.JoinTags(n.Tags))
	b.surface.SetContent(n.ContentRich)
	b.surface.SetEnabled(true)
	return true
}

// Reset forgets what is on the surface so the next Project writes it again.
// Used when the note under the surface was replaced wholesale (backup pull).
func (b *Bridge) Reset() {
	b.primed = false
	b.projected = ""
}

// Snapshot reads the surface into a patch that sets every field.
func (b *Bridge) Snapshot() notes.Patch {
	title := strings.TrimSpace(b.surface.Title())
	content := b.surface.Content()
	return notes.Patch{
		Title:       &title,
		Tags:        notes.ParseTags(b.surface.Tags()),
		ContentRich: &content,
	}
}
