// Package backup is the remote backup adapter: it pushes and pulls a whole
// note collection as one blob per identity.
package backup

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/kuitang/notekeep/internal/s3client"
)

// ErrNotFound is returned by a Store when no blob exists under a key.
var ErrNotFound = errors.New("backup: not found")

// Store holds opaque blobs by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
}

// S3Store keeps blobs as private objects in an S3 bucket.
type S3Store struct {
	client *s3client.Client
}

// NewS3Store wraps client.
func NewS3Store(client *s3client.Client) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetObject(ctx, key)
	if errors.Is(err, s3client.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *S3Store) Put(ctx context.Context, key string, blob []byte) error {
	return s.client.PutObject(ctx, key, blob, blobContentType)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(blob), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = slices.Clone(blob)
	return nil
}
