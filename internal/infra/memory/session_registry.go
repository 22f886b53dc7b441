package memory

import (
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
// Sessions own goroutines and timers, so they always live in process.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.SnapshotKey]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[domain.SnapshotKey]*app.Session),
	}
}

func (r *SessionRegistry) Put(key domain.SnapshotKey, session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[key] = session
}

func (r *SessionRegistry) Get(key domain.SnapshotKey) (*app.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[key]
	return session, ok
}

func (r *SessionRegistry) Delete(key domain.SnapshotKey, session *app.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[key]; ok && current == session {
		delete(r.sessions, key)
	}
}

func (r *SessionRegistry) Sessions() []*app.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*app.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, session)
	}
	return out
}

// Len reports how many sessions are registered.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
