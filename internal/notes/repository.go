package notes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kuitang/notekeep/internal/errs"
	"github.com/kuitang/notekeep/internal/kvstore"
	"github.com/kuitang/notekeep/internal/logutil"
	"github.com/kuitang/notekeep/internal/obs"
)

// Repository owns the ordered note collection of one repository key.
// Notes are kept newest-created first; that order is the persisted order.
//
// A Repository is not safe for concurrent use. The owning session serializes access.
type Repository struct {
	store kvstore.Store
	key   string
	notes []Note
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDGenerator overrides note id generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Repository) { r.newID = newID }
}

// NewRepository creates an empty repository over store. Call Load before use.
func NewRepository(store kvstore.Store, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		log:   obs.Pkg("notes"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the repository key the collection was loaded under.
func (r *Repository) Key() string {
	return r.key
}

// Load replaces the in-memory collection with the one persisted under key.
// Missing, unreadable or malformed data yields an empty collection.
func (r *Repository) Load(key string) {
	r.key = key
	r.notes = nil

	raw, ok, err := r.store.Get(key)
	if err != nil {
		r.log.Warn("notes load failed, starting empty", "repo_key", key, "error", err)
		return
	}
	if !ok {
		return
	}

	loaded, err := DecodeCollection([]byte(raw))
	if err != nil {
		r.log.Warn("notes data malformed, starting empty",
			"repo_key", key,
			"error", err,
			"preview", logutil.TruncateForLog(raw, 80),
		)
		return
	}
	r.notes = loaded
}

// Save writes the whole collection under the current key. Last writer wins.
func (r *Repository) Save() error {
	data, err := EncodeCollection(r.notes)
	if err != nil {
		return errs.Wrap(errs.Internal, "could not encode notes", err)
	}
	if err := r.store.Set(r.key, string(data)); err != nil {
		r.log.Warn("notes save failed", "repo_key", r.key, "count", len(r.notes), "error", err)
		return errs.Wrap(errs.Unavailable, "could not save notes", err)
	}
	return nil
}

// Replace swaps in an entire collection (e.g. restored from backup) and persists it.
func (r *Repository) Replace(collection []Note) error {
	r.notes = normalizeCollection(slices.Clone(collection))
	return r.Save()
}

// Create prepends a blank note and persists. The note is kept in memory even
// when persisting fails; the error is then Unavailable.
func (r *Repository) Create() (Note, error) {
	now := r.now()
	n := Note{
		ID:        r.freshID(),
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.notes = slices.Insert(r.notes, 0, n)
	return n, r.Save()
}

func (r *Repository) freshID() string {
	for {
		id := r.newID()
		if id != "" && r.IndexOf(id) < 0 {
			return id
		}
	}
}

// Delete removes the note with id and persists. It returns the index the note
// held before removal, or -1 (and does nothing) when id is unknown.
func (r *Repository) Delete(id string) (int, error) {
	i := r.IndexOf(id)
	if i < 0 {
		return -1, nil
	}
	r.notes = slices.Delete(r.notes, i, i+1)
	return i, r.Save()
}

// Update applies patch to the note with id, recomputes the plain-text
// projection when content is patched, bumps UpdatedAt and persists.
// ok is false (and nothing happens) when id is unknown.
func (r *Repository) Update(id string, patch Patch) (updated Note, ok bool, err error) {
	i := r.IndexOf(id)
	if i < 0 {
		return Note{}, false, nil
	}

	n := r.notes[i]
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Tags != nil {
		n.Tags = NormalizeTags(patch.Tags)
	}
	if patch.ContentRich != nil {
		n.ContentRich = *patch.ContentRich
		n.ContentPlain = PlainText(n.ContentRich)
	}
	n.UpdatedAt = r.now()
	r.notes[i] = n

	return n, true, r.Save()
}

// Find returns the note with id.
func (r *Repository) Find(id string) (Note, bool) {
	i := r.IndexOf(id)
	if i < 0 {
		return Note{}, false
	}
	return r.notes[i], true
}

// IndexOf returns the position of id in the ordered collection, or -1.
func (r *Repository) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(r.notes, func(n Note) bool { return n.ID == id })
}

// At returns the note at position i.
func (r *Repository) At(i int) (Note, bool) {
	if i < 0 || i >= len(r.notes) {
		return Note{}, false
	}
	return r.notes[i], true
}

// All returns the ordered collection. The slice is a copy; tag slices are shared
// and must not be modified.
func (r *Repository) All() []Note {
	return slices.Clone(r.notes)
}

// Len returns the number of notes.
func (r *Repository) Len() int {
	return len(r.notes)
}

// EncodeCollection serializes notes as a JSON array.
func EncodeCollection(collection []Note) ([]byte, error) {
	if collection == nil {
		collection = []Note{}
	}
	data, err := json.Marshal(collection)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notes: %w", err)
	}
	return data, nil
}

// DecodeCollection parses a JSON array of notes and restores invariants:
// tags are normalized and the plain-text projection is recomputed.
func DecodeCollection(data []byte) ([]Note, error) {
	var collection []Note
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return normalizeCollection(collection), nil
}

func normalizeCollection(collection []Note) []Note {
	out := make([]Note, 0, len(collection))
	seen := make(map[string]bool, len(collection))
	for _, n := range collection {
		if n.ID == "" || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		n.Tags = NormalizeTags(n.Tags)
		n.ContentPlain = PlainText(n.ContentRich)
		out = append(out, n)
	}
	return out
}
