package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/notekeep/internal/backup"
	"github.com/kuitang/notekeep/internal/editor"
	"github.com/kuitang/notekeep/internal/errs"
	"github.com/kuitang/notekeep/internal/identity"
	"github.com/kuitang/notekeep/internal/kvstore"
)

type rejectResolver struct{}

func (rejectResolver) Resolve(context.Context, string) (*identity.Identity, error) {
	return nil, errs.New(errs.PermissionDenied, "token rejected")
}

var ada = &identity.Identity{ID: "sub-ada", Email: "ada@example.com", DisplayName: "Ada"}

func TestStart_GuestByDefault(t *testing.T) {
	t.Parallel()
	w := Start(Config{Store: kvstore.NewMemory()})
	require.True(t, w.Identity().IsGuest())
	require.Equal(t, identity.GuestRepositoryKey, w.Current().RepositoryKey())
}

func TestStart_RecallsLastIdentity(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	w := Start(Config{Store: store})
	s, err := w.SignIn(ada)
	require.NoError(t, err)
	_, err = s.Create()
	require.NoError(t, err)

	again := Start(Config{Store: store})
	require.Equal(t, "sub-ada", again.Identity().ID)
	require.Len(t, again.Current().Notes(), 1)
}

func TestSignInSignOut_SwapsRepositories(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	surface := editor.NewMemorySurface()
	w := Start(Config{Store: store, Surface: surface})

	guest := w.Current()
	_, err := guest.Create()
	require.NoError(t, err)
	guest.Surface().SetTitle("guest note")
	_, _, err = guest.Commit()
	require.NoError(t, err)

	user, err := w.SignIn(ada)
	require.NoError(t, err)
	require.True(t, guest.Closed())
	require.Empty(t, user.Notes())
	require.False(t, surface.Enabled())
	require.Equal(t, "", surface.Title())

	back := w.SignOut()
	require.True(t, user.Closed())
	require.True(t, back.Identity().IsGuest())
	require.Len(t, back.Notes(), 1)
	require.Equal(t, "guest note", surface.Title())

	_, ok, err := store.Get(identity.LastIdentityKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignIn_SameIdentityKeepsSession(t *testing.T) {
	t.Parallel()
	w := Start(Config{Store: kvstore.NewMemory()})
	first, err := w.SignIn(ada)
	require.NoError(t, err)
	second, err := w.SignIn(&identity.Identity{ID: "sub-ada"})
	require.NoError(t, err)
	require.Same(t, first, second)
	require.False(t, first.Closed())
}

func TestSignIn_GuestRejected(t *testing.T) {
	t.Parallel()
	w := Start(Config{Store: kvstore.NewMemory()})
	_, err := w.SignIn(nil)
	require.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestSignInWithToken_FailureKeepsGuest(t *testing.T) {
	t.Parallel()
	w := Start(Config{Store: kvstore.NewMemory(), Resolver: rejectResolver{}})
	guest := w.Current()

	_, err := w.SignInWithToken(context.Background(), "bad")
	require.Equal(t, errs.PermissionDenied, errs.CodeOf(err))
	require.Same(t, guest, w.Current())
	require.False(t, guest.Closed())

	_, err = guest.Create()
	require.NoError(t, err, "local note-taking keeps working after auth failure")
}

func TestSignInWithToken_StaticResolver(t *testing.T) {
	t.Parallel()
	w := Start(Config{Store: kvstore.NewMemory(), Resolver: identity.StaticResolver{Identity: ada}})
	s, err := w.SignInWithToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "notes_sub-ada", s.RepositoryKey())

	w2 := Start(Config{Store: kvstore.NewMemory()})
	_, err = w2.SignInWithToken(context.Background(), "tok")
	require.Equal(t, errs.FailedPrecondition, errs.CodeOf(err))
}

func TestRemoteOnlyForSignedIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	w := Start(Config{Store: kvstore.NewMemory(), Remote: backup.NewAdapter(backup.NewMemoryStore())})

	err := w.Current().Push(ctx)
	require.Equal(t, errs.FailedPrecondition, errs.CodeOf(err))

	s, err := w.SignIn(ada)
	require.NoError(t, err)
	require.NoError(t, s.Push(ctx))
}

func TestSignIn_RememberFailureStillSwitches(t *testing.T) {
	t.Parallel()
	faulty := kvstore.NewFaulty(kvstore.NewMemory())
	w := Start(Config{Store: faulty})
	faulty.FailSets(errors.New("read-only"))

	s, err := w.SignIn(ada)
	require.NoError(t, err)
	require.Equal(t, "notes_sub-ada", s.RepositoryKey())
}

func TestSignIn_ClosedSessionCannotReachSharedSurface(t *testing.T) {
	t.Parallel()
	surface := editor.NewMemorySurface()
	w := Start(Config{Store: kvstore.NewMemory(), Surface: surface})

	guest := w.Current()
	gn, err := guest.Create()
	require.NoError(t, err)
	guest.Surface().SetTitle("guest secret")
	_, _, err = guest.Commit()
	require.NoError(t, err)

	user, err := w.SignIn(ada)
	require.NoError(t, err)
	un, err := user.Create()
	require.NoError(t, err)
	surface.SetTitle("ada title")
	_, _, err = user.Commit()
	require.NoError(t, err)

	require.False(t, guest.Select(gn.ID))
	require.Equal(t, "ada title", surface.Title())

	_, _, err = user.Commit()
	require.NoError(t, err)
	got, ok := user.Find(un.ID)
	require.True(t, ok)
	require.Equal(t, "ada title", got.Title)
	_, ok = user.Find(gn.ID)
	require.False(t, ok)
}
