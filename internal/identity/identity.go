// Package identity models the signed-in user (or guest) and derives the
// storage partition each identity's notes live in.
package identity

import (
	"encoding/json"
	"strings"

	"github.com/kuitang/notekeep/internal/kvstore"
	"github.com/kuitang/notekeep/internal/obs"
)

const (
	// GuestRepositoryKey partitions notes taken without signing in.
	GuestRepositoryKey = "notes_guest"

	// LastIdentityKey stores the most recently signed-in identity.
	LastIdentityKey = "lastUser"

	repositoryKeyPrefix = "notes_"

	// reservedSubject is the key suffix of the guest partition. A user whose
	// subject is literally this, or starts with escapeMark, gets escapeMark
	// prepended so no user key can equal the guest key or another user's.
	reservedSubject = "guest"
	escapeMark      = "~"
)

// Identity is a signed-in user. A nil *Identity means guest.
type Identity struct {
	ID          string `json:"sub"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"picture,omitempty"`
}

// Label returns the name shown for the identity.
func (id *Identity) Label() string {
	if id == nil {
		return "Guest"
	}
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}

// IsGuest reports whether id represents no signed-in user.
func (id *Identity) IsGuest() bool {
	return id == nil || strings.TrimSpace(id.ID) == ""
}

// RepositoryKey derives the storage partition for id.
func RepositoryKey(id *Identity) string {
	if id.IsGuest() {
		return GuestRepositoryKey
	}
	sub := id.ID
	if sub == reservedSubject || strings.HasPrefix(sub, escapeMark) {
		sub = escapeMark + sub
	}
	return repositoryKeyPrefix + sub
}

// Same reports whether a and b denote the same user (guest equals guest).
func Same(a, b *Identity) bool {
	return RepositoryKey(a) == RepositoryKey(b)
}

// Remember records id as the last signed-in identity.
func Remember(store kvstore.Store, id *Identity) error {
	if id.IsGuest() {
		return Forget(store)
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return store.Set(LastIdentityKey, string(data))
}

// Recall returns the last signed-in identity, or nil (guest) when there is
// none or the record cannot be read.
func Recall(store kvstore.Store) *Identity {
	raw, ok, err := store.Get(LastIdentityKey)
	if err != nil {
		obs.Pkg("identity").Warn("last identity unreadable, continuing as guest", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		obs.Pkg("identity").Warn("last identity malformed, continuing as guest", "error", err)
		return nil
	}
	if id.IsGuest() {
		return nil
	}
	return &id
}

// Forget removes the last-identity record.
func Forget(store kvstore.Store) error {
	return store.Remove(LastIdentityKey)
}
