package offline

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"
)

// ErrNotCached is returned by Store.Get when the cache has no entry for the key.
var ErrNotCached = errors.New("offline: not cached")

// Entry is a stored successful response.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Store persists named caches of entries keyed by request URL. A cache name
// carries the generation ("pukaar-cache-v3"), so a new generation never sees
// entries of an old one.
type Store interface {
	Get(ctx context.Context, cache, key string) (Entry, error)
	Put(ctx context.Context, cache, key string, e Entry) error
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, cache string) error
}

// MemoryStore keeps caches in process memory, each bounded by an LRU.
type MemoryStore struct {
	maxEntries int
	mu         sync.Mutex
	caches     map[string]*lruCache
}

// NewMemoryStore creates a memory store holding at most maxEntries per cache.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		maxEntries: maxEntries,
		caches:     make(map[string]*lruCache),
	}
}

func (s *MemoryStore) Get(_ context.Context, cache, key string) (Entry, error) {
	s.mu.Lock()
	c, ok := s.caches[cache]
	s.mu.Unlock()
	if !ok {
		return Entry{}, ErrNotCached
	}
	e, ok := c.get(key)
	if !ok {
		return Entry{}, ErrNotCached
	}
	return e, nil
}

func (s *MemoryStore) Put(_ context.Context, cache, key string, e Entry) error {
	s.mu.Lock()
	c, ok := s.caches[cache]
	if !ok {
		c = newLRUCache(s.maxEntries)
		s.caches[cache] = c
	}
	s.mu.Unlock()
	c.put(key, e)
	return nil
}

func (s *MemoryStore) Names(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStore) Delete(_ context.Context, cache string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, cache)
	return nil
}
