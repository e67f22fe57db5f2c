package tracker

import (
	"sync"
	"time"
)

// Session is one open episode of a user being present in the monitored voice
// channel.
type Session struct {
	UserID         string
	DisplayName    string
	OpenedAt       time.Time
	SpeakingAtOpen bool
}

// Registry is the authoritative map of currently open sessions, at most one
// per user.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open registers a session for the user. If the user already has an open
// session it is replaced and returned so the caller can treat it as an
// anomaly; a missed leave event must not block the new session.
func (r *Registry) Open(userID string, s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[userID]
	r.sessions[userID] = s
	return prev
}

// Close removes and returns the user's open session, if any.
func (r *Registry) Close(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
	}
	return s, ok
}

func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
