package discovery

import (
	"sync"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
)

// DefaultSessionID is used when a client sends no session id.
const DefaultSessionID = "default"

// DefaultMaxSessions is the registry's default size cap.
const DefaultMaxSessions = 1024

// Registry hands out one Session per client session id.
type Registry struct {
	finder      *Finder
	maxSessions int

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session  *Session
	lastUsed time.Time
}

// NewRegistry creates a registry of sessions backed by finder.
func NewRegistry(finder *Finder, maxSessions int) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		finder:      finder,
		maxSessions: maxSessions,
		sessions:    make(map[string]*registryEntry),
	}
}

// Session returns the session for id, creating it on first use. When the
// registry is full the least recently used idle session is dropped. The
// registry never holds more than maxSessions: if every session is busy, the
// new session is returned unregistered and keeps no state between calls.
func (r *Registry) Session(id string) *Session {
	if id == "" {
		id = DefaultSessionID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := domain.Now()
	if e, ok := r.sessions[id]; ok {
		e.lastUsed = now
		return e.session
	}
	if len(r.sessions) >= r.maxSessions && !r.evictIdle() {
		return r.finder.NewSession()
	}
	s := r.finder.NewSession()
	r.sessions[id] = &registryEntry{session: s, lastUsed: now}
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// evictIdle drops the least recently used idle session. It reports false
// when every session is busy.
func (r *Registry) evictIdle() bool {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range r.sessions {
		if e.session.Busy() {
			continue
		}
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID == "" {
		return false
	}
	delete(r.sessions, oldestID)
	return true
}
