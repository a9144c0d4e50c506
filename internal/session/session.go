// Package session holds the state of one identity's notes: the repository,
// the active selection, the list filter and the editor binding. A Session is
// created when an identity becomes current and closed when it stops being so.
package session

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/kuitang/notekeep/internal/editor"
	"github.com/kuitang/notekeep/internal/errs"
	"github.com/kuitang/notekeep/internal/identity"
	"github.com/kuitang/notekeep/internal/kvstore"
	"github.com/kuitang/notekeep/internal/logutil"
	"github.com/kuitang/notekeep/internal/notes"
	"github.com/kuitang/notekeep/internal/obs"
)

var (
	// ErrClosed is returned by mutations on a session that has been closed.
	ErrClosed = errs.New(errs.FailedPrecondition, "session closed")

	// ErrStale is returned when the identity changed while a backup call was in flight.
	// The result of that call has been discarded.
	ErrStale = errs.New(errs.FailedPrecondition, "identity changed during remote backup")

	errRemoteDisabled = errs.New(errs.FailedPrecondition, "remote backup is not enabled")
	errGuestRemote    = errs.New(errs.FailedPrecondition, "sign in to use remote backup")
)

// Remote is the remote backup collaborator.
type Remote interface {
	Pull(ctx context.Context, id *identity.Identity) ([]notes.Note, error)
	Push(ctx context.Context, id *identity.Identity, collection []notes.Note) error
}

// Config describes a session.
type Config struct {
	Store    kvstore.Store
	Identity *identity.Identity
	// Surface receives projections of the active note. Nil uses a headless surface.
	Surface editor.Surface
	// Remote is optional; nil disables Pull and Push.
	Remote      Remote
	RepoOptions []notes.Option
}

// Session is safe for concurrent use. Operations are serialized; events are
// delivered after the lock is released, in the order they were raised.
type Session struct {
	mu        sync.Mutex
	identity  *identity.Identity
	repo      *notes.Repository
	bridge    *editor.Bridge
	remote    Remote
	activeID  string
	filter    notes.Filter
	closed    bool
	subs      []subscription
	nextSubID int
	pending   []Event
	log       *slog.Logger
}

// Open loads the identity's collection and selects its first note.
func Open(cfg Config) *Session {
	surface := cfg.Surface
	if surface == nil {
		surface = editor.NewMemorySurface()
	}
	repoKey := identity.RepositoryKey(cfg.Identity)

	s := &Session{
		identity: cfg.Identity,
		repo:     notes.NewRepository(cfg.Store, cfg.RepoOptions...),
		bridge:   editor.NewBridge(surface),
		remote:   cfg.Remote,
		log:      obs.Pkg("session").With("repo_key", repoKey),
	}
	s.repo.Load(repoKey)
	if first, ok := s.repo.At(0); ok {
		s.activeID = first.ID
	}
	s.projectActive()
	s.log.Debug("session opened", "count", s.repo.Len(), "active_id", s.activeID)
	return s
}

// Subscribe registers fn for future events and returns a func that removes it.
func (s *Session) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	}
}

// unlockAndNotify releases the lock and delivers pending events.
func (s *Session) unlockAndNotify() {
	events := s.pending
	s.pending = nil
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, ev := range events {
		for _, sub := range subs {
			sub.fn(ev)
		}
	}
}

func (s *Session) emit(kinds ...EventKind) {
	for _, k := range kinds {
		ev := Event{Kind: k}
		if k == ActiveChanged {
			ev.ActiveID = s.activeID
		}
		s.pending = append(s.pending, ev)
	}
}

func (s *Session) notice(message string, err error) {
	s.pending = append(s.pending, Event{Kind: Notice, Message: message, Err: err})
}

// persistFailed turns a save error into a notice. The in-memory change stands.
func (s *Session) persistFailed(err error) error {
	if err == nil {
		return nil
	}
	s.notice("Changes could not be saved on this device", err)
	return err
}

func (s *Session) projectActive() {
	if s.closed {
		return
	}
	if n, ok := s.repo.Find(s.activeID); ok {
		s.bridge.Project(&n)
		return
	}
	s.bridge.Project(nil)
}

// Identity returns the identity the session belongs to (nil for guest).
func (s *Session) Identity() *identity.Identity {
	return s.identity
}

// RepositoryKey returns the storage partition of the session.
func (s *Session) RepositoryKey() string {
	return identity.RepositoryKey(s.identity)
}

// Surface returns the surface bound to the active note.
func (s *Session) Surface() editor.Surface {
	return s.bridge.Surface()
}

// Close detaches the session. Later mutations fail with ErrClosed and
// in-flight backup results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
	s.pending = nil
	s.log.Debug("session closed")
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Create prepends a blank note, makes it active and projects it.
func (s *Session) Create() (notes.Note, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.closed {
		return notes.Note{}, ErrClosed
	}

	n, err := s.repo.Create()
	s.activeID = n.ID
	s.bridge.Project(&n)
	s.emit(ListChanged, TagIndexChanged, ActiveChanged)
	s.log.Debug("note created", "note_id", n.ID)
	return n, s.persistFailed(err)
}

// Select makes id active. Unknown ids are ignored and leave the selection as
// is. A closed session selects nothing and leaves the surface alone.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.closed {
		return false
	}

	n, ok := s.repo.Find(id)
	if !ok {
		return false
	}
	if id == s.activeID {
		return true
	}
	s.activeID = id
	s.bridge.Project(&n)
	s.emit(ActiveChanged)
	return true
}

// Delete removes the note with id. When it was active, the note that took its
// place becomes active, else the one before it, else none.
// It reports false when id is unknown.
func (s *Session) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.closed {
		return false, ErrClosed
	}
	return s.deleteLocked(id)
}

// DeleteActive deletes the active note, if any.
func (s *Session) DeleteActive() (bool, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.closed {
		return false, ErrClosed
	}
	if s.activeID == "" {
		return false, nil
	}
	return s.deleteLocked(s.activeID)
}

func (s *Session) deleteLocked(id string) (bool, error) {
	i, err := s.repo.Delete(id)
	if i < 0 {
		return false, nil
	}

	if id == s.activeID {
		s.activeID = ""
		if n, ok := s.repo.At(i); ok {
			s.activeID = n.ID
		} else if n, ok := s.repo.At(i - 1); ok {
			s.activeID = n.ID
		}
		s.projectActive()
		s.emit(ActiveChanged)
	}
	s.emit(ListChanged, TagIndexChanged)
	s.log.Debug("note deleted", "note_id", id, "active_id", s.activeID)
	return true, s.persistFailed(err)
}

// Commit writes the surface back into the active note. Without an active
// note it does nothing and returns false.
func (s *Session) Commit() (notes.Note, bool, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.closed {
		return notes.Note{}, false, ErrClosed
	}
	return s.commitLocked()
}

func (s *Session) commitLocked() (notes.Note, bool, error) {
	if s.activeID == "" {
		return notes.Note{}, false, nil
	}
	n, ok, err := s.repo.Update(s.activeID, s.bridge.Snapshot())
	if !ok {
		return notes.Note{}, false, nil
	}
	s.emit(ListChanged, TagIndexChanged)
	return n, true, s.persistFailed(err)
}

// ClearContent empties the rich content of the active note and commits.
func (s *Session) ClearContent() (notes.Note, bool, error) {
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.closed {
		return notes.Note{}, false, ErrClosed
	}
	if s.activeID == "" {
		return notes.Note{}, false, nil
	}
	s.bridge.Surface().SetContent("")
	return s.commitLocked()
}

// SetSearch sets the case-insensitive search text. Empty means no text constraint.
func (s *Session) SetSearch(text string) {
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.filter.SearchText == text {
		return
	}
	s.filter.SearchText = text
	s.log.Debug("search changed", "search", logutil.TruncateForLog(text, 40))
	s.emit(ListChanged)
}

// SetTag restricts the list to notes carrying tag. Empty clears the tag filter.
func (s *Session) SetTag(tag string) {
	tag = strings.TrimSpace(tag)
	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.filter.Tag == tag {
		return
	}
	s.filter.Tag = tag
	s.emit(ListChanged, TagIndexChanged)
}

// Filter returns the current filter.
func (s *Session) Filter() notes.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Notes returns the whole ordered collection.
func (s *Session) Notes() []notes.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.All()
}

// VisibleNotes returns the ordered notes passing the current filter. The
// active note may be filtered out; it stays active.
func (s *Session) VisibleNotes() []notes.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notes.Visible(s.repo.All(), s.filter)
}

// Find returns the note with id.
func (s *Session) Find(id string) (notes.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Find(id)
}

// Active returns the active note.
func (s *Session) Active() (notes.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Find(s.activeID)
}

// ActiveID returns the active note id, or "".
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// TagIndex returns tag counts over the whole collection.
func (s *Session) TagIndex() notes.TagIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notes.BuildTagIndex(s.repo.All())
}

// TagEntries returns the tag list with the "All" entry first.
func (s *Session) TagEntries() []notes.TagEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return notes.TagEntries(notes.BuildTagIndex(s.repo.All()), s.filter.Tag)
}

// remoteTarget checks that remote backup may run and returns the identity it runs for.
func (s *Session) remoteTarget() (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, ErrClosed
	case s.remote == nil:
		return nil, errRemoteDisabled
	case s.identity.IsGuest():
		return nil, errGuestRemote
	}
	return s.identity, nil
}

// stale reports whether results for id must be discarded. Caller holds the lock.
func (s *Session) stale(id *identity.Identity) bool {
	return s.closed || !identity.Same(s.identity, id)
}

// Pull replaces the local collection with the remote backup. found is false
// when there is no backup yet; local notes are then left alone.
func (s *Session) Pull(ctx context.Context) (found bool, err error) {
	id, err := s.remoteTarget()
	if err != nil {
		return false, err
	}
	ctx = obs.StartOperation(ctx, "backup.pull", identity.RepositoryKey(id))

	collection, err := s.remote.Pull(ctx, id)

	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.stale(id) {
		obs.From(ctx).Info("discarding stale pull result")
		return false, ErrStale
	}
	if errs.CodeOf(err) == errs.NotFound {
		s.notice("No remote backup found", nil)
		return false, nil
	}
	if err != nil {
		s.notice("Remote backup could not be fetched", err)
		return false, err
	}

	saveErr := s.repo.Replace(collection)
	if _, ok := s.repo.Find(s.activeID); !ok {
		s.activeID = ""
		if first, ok := s.repo.At(0); ok {
			s.activeID = first.ID
		}
	}
	s.bridge.Reset()
	s.projectActive()
	s.emit(ListChanged, TagIndexChanged, ActiveChanged)
	obs.From(ctx).Info("local notes replaced from backup", "count", s.repo.Len())
	return true, s.persistFailed(saveErr)
}

// Push uploads the whole local collection. A failure leaves local state
// untouched and is returned as errs.Unavailable.
func (s *Session) Push(ctx context.Context) error {
	id, err := s.remoteTarget()
	if err != nil {
		return err
	}
	ctx = obs.StartOperation(ctx, "backup.push", identity.RepositoryKey(id))

	s.mu.Lock()
	collection := s.repo.All()
	s.mu.Unlock()

	err = s.remote.Push(ctx, id, collection)

	s.mu.Lock()
	defer s.unlockAndNotify()
	if s.stale(id) {
		obs.From(ctx).Info("push finished after identity changed", "error", err)
		return ErrStale
	}
	if err != nil {
		s.notice("Remote backup failed; notes are still saved on this device", err)
		return errs.Wrap(errs.Unavailable, "remote backup failed", err)
	}
	return nil
}
