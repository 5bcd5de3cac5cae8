package ratelimit

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Window is the request count of one fixed window for one key.
type Window struct {
	Start time.Time
	Count int
}

// Store persists windows between requests. Entries written with a ttl must
// not be returned by Read once the ttl has elapsed.
type Store interface {
	Read(ctx context.Context, key string) (Window, bool, error)
	Write(ctx context.Context, key string, w Window, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// MemoryStore keeps windows in process memory. Expired entries are dropped
// by the cache janitor every cleanup interval.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, cleanup)}
}

func (s *MemoryStore) Read(_ context.Context, key string) (Window, bool, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return Window{}, false, nil
	}
	return v.(Window), true, nil
}

func (s *MemoryStore) Write(_ context.Context, key string, w Window, ttl time.Duration) error {
	s.cache.Set(key, w, ttl)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Len returns the number of tracked keys, expired ones included until the
// janitor runs.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
