package auth

import (
	"context"
	"sync"
	"time"
)

// Registry holds the live session of every client id
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      SessionConfig
	deps     SessionDeps
}

// NewRegistry creates an empty registry whose sessions share cfg and deps
func NewRegistry(cfg SessionConfig, deps SessionDeps) *Registry {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Registry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		deps:     deps,
	}
}

// Get returns the session for sid, creating it and restoring any stored
// lockout on first use
func (r *Registry) Get(ctx context.Context, sid string) *Session {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	if !ok {
		s = NewSession(sid, r.cfg, r.deps)
		r.sessions[sid] = s
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		r.deps.Metrics.SetActiveSessions(n)
		if err := s.Restore(ctx); err != nil {
			s.log.Warn("failed to restore lockout", "error", err)
		}
	}
	return s
}

// Sweep closes and drops sessions idle for longer than idle. Dropped
// lockouts come back from the lockout store on the next Get.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.deps.Clock().Add(-idle)

	r.mu.Lock()
	var stale []*Session
	for sid, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, sid)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	r.deps.Metrics.SetActiveSessions(n)
	return len(stale)
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops every session
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, s := range r.sessions {
		s.Close()
		delete(r.sessions, sid)
	}
}
