// Package workspace ties the current identity to its session. Signing in or
// out swaps the whole session; notes never cross identities.
package workspace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kuitang/notekeep/internal/editor"
	"github.com/kuitang/notekeep/internal/errs"
	"github.com/kuitang/notekeep/internal/identity"
	"github.com/kuitang/notekeep/internal/kvstore"
	"github.com/kuitang/notekeep/internal/notes"
	"github.com/kuitang/notekeep/internal/obs"
	"github.com/kuitang/notekeep/internal/session"
)

// Config holds the collaborators shared by every session of a workspace.
type Config struct {
	Store   kvstore.Store
	Surface editor.Surface
	// Remote is optional; guest sessions refuse to use it.
	Remote session.Remote
	// Resolver turns access tokens into identities for SignInWithToken.
	Resolver    identity.Resolver
	RepoOptions []notes.Option
}

// Workspace owns the current session.
type Workspace struct {
	mu      sync.Mutex
	cfg     Config
	current *session.Session
	log     *slog.Logger
}

// Start opens the session of the last signed-in identity, or the guest session.
func Start(cfg Config) *Workspace {
	if cfg.Surface == nil {
		cfg.Surface = editor.NewMemorySurface()
	}
	w := &Workspace{cfg: cfg, log: obs.Pkg("workspace")}
	w.current = w.open(identity.Recall(cfg.Store))
	return w
}

func (w *Workspace) open(id *identity.Identity) *session.Session {
	s := session.Open(session.Config{
		Store:       w.cfg.Store,
		Identity:    id,
		Surface:     w.cfg.Surface,
		Remote:      w.cfg.Remote,
		RepoOptions: w.cfg.RepoOptions,
	})
	w.log.Info("session started", "repo_key", s.RepositoryKey(), "count", len(s.Notes()))
	return s
}

// Current returns the session of the current identity.
func (w *Workspace) Current() *session.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Identity returns the current identity (nil for guest).
func (w *Workspace) Identity() *identity.Identity {
	return w.Current().Identity()
}

// SignIn makes id current: it is remembered for the next start and its
// notes replace the previous identity's session. Signing in as the identity
// that is already current keeps the session.
func (w *Workspace) SignIn(id *identity.Identity) (*session.Session, error) {
	if id.IsGuest() {
		return nil, errs.New(errs.InvalidArgument, "identity has no subject")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := identity.Remember(w.cfg.Store, id); err != nil {
		// Local note-taking still works; only the next start falls back to guest.
		w.log.Warn("could not remember identity", "error", err)
	}
	if identity.Same(w.current.Identity(), id) {
		return w.current, nil
	}
	w.current.Close()
	w.current = w.open(id)
	return w.current, nil
}

// SignInWithToken resolves accessToken to an identity and signs it in. On
// failure the current session is kept and the error is PermissionDenied.
func (w *Workspace) SignInWithToken(ctx context.Context, accessToken string) (*session.Session, error) {
	if w.cfg.Resolver == nil {
		return nil, errs.New(errs.FailedPrecondition, "sign-in is not configured")
	}
	id, err := w.cfg.Resolver.Resolve(ctx, accessToken)
	if err != nil {
		obs.From(ctx).Warn("sign-in failed, staying on current identity", "error", err)
		return nil, err
	}
	return w.SignIn(id)
}

// SignOut forgets the remembered identity and switches to the guest session.
func (w *Workspace) SignOut() *session.Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := identity.Forget(w.cfg.Store); err != nil {
		w.log.Warn("could not forget identity", "error", err)
	}
	if w.current.Identity().IsGuest() {
		return w.current
	}
	w.current.Close()
	w.current = w.open(nil)
	return w.current
}
