package store

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/banker-pool/internal/metrics"
)

// SnapshotStore serves Get from a short-lived in-memory snapshot of the backing store.
// Writes go straight to the backing store and drop the cached entry.
// A zero TTL disables caching.
type SnapshotStore struct {
	backing Store
	cache   *cache.Cache
	ttl     time.Duration
}

// NewSnapshotStore wraps backing with a read snapshot of the given TTL
func NewSnapshotStore(backing Store, ttl time.Duration) *SnapshotStore {
	s := &SnapshotStore{backing: backing, ttl: ttl}
	if ttl > 0 {
		s.cache = cache.New(ttl, ttl*4)
	}
	return s
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.cache == nil {
		return s.backing.Get(ctx, key)
	}
	if cached, found := s.cache.Get(key); found {
		metrics.RecordSnapshotLookup(true)
		blob := cached.([]byte)
		out := make([]byte, len(blob))
		copy(out, blob)
		return out, nil
	}
	metrics.RecordSnapshotLookup(false)

	blob, err := s.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.cache.Set(key, stored, s.ttl)
	return blob, nil
}

func (s *SnapshotStore) Put(ctx context.Context, key string, blob []byte) error {
	err := s.backing.Put(ctx, key, blob)
	s.invalidate(key)
	return err
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	err := s.backing.Delete(ctx, key)
	s.invalidate(key)
	return err
}

func (s *SnapshotStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.backing.List(ctx, prefix)
}

func (s *SnapshotStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.cache != nil {
		if _, found := s.cache.Get(key); found {
			return true, nil
		}
	}
	return s.backing.Exists(ctx, key)
}

// Fresh returns a view that reads through to the backing store and writes through the snapshot.
// Read-modify-write cycles use it so they never start from a stale blob.
func (s *SnapshotStore) Fresh() Store {
	return &freshStore{snapshot: s}
}

func (s *SnapshotStore) invalidate(key string) {
	if s.cache != nil {
		s.cache.Delete(key)
	}
}

type freshStore struct {
	snapshot *SnapshotStore
}

func (f *freshStore) Get(ctx context.Context, key string) ([]byte, error) {
	return f.snapshot.backing.Get(ctx, key)
}

func (f *freshStore) Put(ctx context.Context, key string, blob []byte) error {
	return f.snapshot.Put(ctx, key, blob)
}

func (f *freshStore) Delete(ctx context.Context, key string) error {
	return f.snapshot.Delete(ctx, key)
}

func (f *freshStore) List(ctx context.Context, prefix string) ([]string, error) {
	return f.snapshot.backing.List(ctx, prefix)
}

func (f *freshStore) Exists(ctx context.Context, key string) (bool, error) {
	return f.snapshot.backing.Exists(ctx, key)
}
