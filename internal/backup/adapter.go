package backup

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/kuitang/notekeep/internal/crypto"
	"github.com/kuitang/notekeep/internal/errs"
	"github.com/kuitang/notekeep/internal/identity"
	"github.com/kuitang/notekeep/internal/notes"
	"github.com/kuitang/notekeep/internal/obs"
)

const (
	// DefaultPrefix namespaces backup objects in a shared bucket.
	DefaultPrefix = "notekeep"

	blobName            = "notes.json"
	blobContentType     = "application/json"
	sealedContentSuffix = ".sealed"
	backupKeyVersion    = 1
)

// Adapter pushes and pulls note collections for an identity.
// It is safe for concurrent use.
type Adapter struct {
	store     Store
	prefix    string
	masterKey []byte
	throttle  *pushThrottle
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPrefix sets the object key prefix.
func WithPrefix(prefix string) Option {
	return func(a *Adapter) { a.prefix = strings.Trim(prefix, "/") }
}

// WithEncryption seals blobs with a per-identity key derived from masterKey.
func WithEncryption(masterKey []byte) Option {
	return func(a *Adapter) { a.masterKey = masterKey }
}

// WithPushInterval spaces consecutive pushes of one identity at least
// interval apart. Zero disables throttling.
func WithPushInterval(interval time.Duration) Option {
	return func(a *Adapter) { a.throttle = newPushThrottle(interval) }
}

// NewAdapter creates an Adapter over store.
func NewAdapter(store Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:    store,
		prefix:   DefaultPrefix,
		throttle: newPushThrottle(0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ObjectKey returns the key the identity's collection is stored under.
func (a *Adapter) ObjectKey(id *identity.Identity) string {
	name := blobName
	if a.masterKey != nil {
		name += sealedContentSuffix
	}
	key := url.PathEscape(id.ID) + "/" + name
	if a.prefix == "" {
		return key
	}
	return a.prefix + "/" + key
}

// Pull fetches the identity's collection. A missing backup is errs.NotFound;
// transport failures are errs.Unavailable.
func (a *Adapter) Pull(ctx context.Context, id *identity.Identity) ([]notes.Note, error) {
	if id.IsGuest() {
		return nil, errs.New(errs.FailedPrecondition, "sign in to use remote backup")
	}
	key := a.ObjectKey(id)
	log := obs.From(ctx).With("pkg", "backup", "object_key", key)

	blob, err := a.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		log.Info("no remote backup")
		return nil, errs.Wrap(errs.NotFound, "no remote backup found", err)
	}
	if err != nil {
		log.Warn("remote backup pull failed", "error", err)
		return nil, errs.Wrap(errs.Unavailable, "remote backup unavailable", err)
	}

	if a.masterKey != nil {
		blob, err = crypto.Open(a.blobKey(id), blob)
		if err != nil {
			log.Warn("remote backup could not be decrypted", "error", err)
			return nil, errs.Wrap(errs.Internal, "remote backup unreadable", err)
		}
	}

	collection, err := notes.DecodeCollection(blob)
	if err != nil {
		log.Warn("remote backup malformed", "error", err, "bytes", len(blob))
		return nil, errs.Wrap(errs.Internal, "remote backup unreadable", err)
	}
	log.Info("remote backup pulled", "count", len(collection))
	return collection, nil
}

// Push replaces the identity's remote collection. Pushes closer together
// than the configured interval wait for their turn.
func (a *Adapter) Push(ctx context.Context, id *identity.Identity, collection []notes.Note) error {
	if id.IsGuest() {
		return errs.New(errs.FailedPrecondition, "sign in to use remote backup")
	}
	key := a.ObjectKey(id)
	log := obs.From(ctx).With("pkg", "backup", "object_key", key)

	if err := a.throttle.Wait(ctx, id.ID); err != nil {
		return errs.Wrap(errs.Unavailable, "remote backup push cancelled", err)
	}

	blob, err := notes.EncodeCollection(collection)
	if err != nil {
		return errs.Wrap(errs.Internal, "could not encode notes", err)
	}
	if a.masterKey != nil {
		blob, err = crypto.Seal(a.blobKey(id), blob)
		if err != nil {
			return errs.Wrap(errs.Internal, "could not seal backup", err)
		}
	}

	if err := a.store.Put(ctx, key, blob); err != nil {
		log.Warn("remote backup push failed", "error", err)
		return errs.Wrap(errs.Unavailable, "remote backup unavailable", err)
	}
	log.Info("remote backup pushed", "count", len(collection), "bytes", len(blob))
	return nil
}

func (a *Adapter) blobKey(id *identity.Identity) []byte {
	return crypto.DeriveKey(a.masterKey, crypto.PurposeBackup, id.ID, backupKeyVersion)
}
