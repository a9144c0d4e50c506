// Package editor binds the active note to an editable surface.
package editor

// Surface is the editable presentation of one note: a title field, a tags
// field and a rich-text content area. Rich-text commands (bold, lists and so
// on) are the surface's own business; the bridge only reads and writes
// snapshots of the three fields.
type Surface interface {
	Title() string
	SetTitle(title string)
	Tags() string
	SetTags(tags string)
	Content() string
	SetContent(rich string)
	// SetEnabled toggles whether the user may edit the surface.
	SetEnabled(enabled bool)
	Enabled() bool
}

// MemorySurface is a headless Surface. The CLI drives edits through it and
// tests use it to observe projections.
type MemorySurface struct {
	title   string
	tags    string
	content string
	enabled bool

	// Writes counts setter calls; a projection performs three.
	Writes int
}

// NewMemorySurface returns a disabled, empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

func (s *MemorySurface) Title() string   { return s.title }
func (s *MemorySurface) Tags() string    { return s.tags }
func (s *MemorySurface) Content() string { return s.content }
func (s *MemorySurface) Enabled() bool   { return s.enabled }

func (s *MemorySurface) SetTitle(title string) {
	s.title = title
	s.Writes++
}

func (s *MemorySurface) SetTags(tags string) {
	s.tags = tags
	s.Writes++
}

func (s *MemorySurface) SetContent(rich string) {
	s.content = rich
	s.Writes++
}

func (s *MemorySurface) SetEnabled(enabled bool) {
	s.enabled = enabled
}
