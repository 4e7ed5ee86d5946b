package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory registry of live sessions, keyed by the session id
// carried in the visitor's cookie. Nothing is persisted: a session exists
// only while the process runs and is pruned once it goes idle.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
}

// NewStore constructs a Store that considers sessions idle after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
	}
}

// Create registers a fresh session for the given demo patient name.
func (st *Store) Create(patientName string) *Session {
	s := New(patientName)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with the given id, if it is still live.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	return s, ok
}

// Delete drops a session from the registry.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// PruneIdle drops every session whose last activity is older than the ttl
// relative to now, returning how many were removed.
func (st *Store) PruneIdle(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	pruned := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastActive()) > st.ttl {
			delete(st.sessions, id)
			pruned++
		}
	}
	return pruned
}

// RunJanitor prunes idle sessions on the given interval until the context is
// cancelled. Intended to run as a goroutine beside the HTTP server.
func (st *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.PruneIdle(time.Now()); n > 0 {
				log.Printf("pruned %d idle sessions, %d live", n, st.Len())
			}
		}
	}
}
