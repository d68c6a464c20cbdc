// ABOUTME: In-memory session store with TTL cleanup and capacity limits.
// ABOUTME: Thread-safe storage mapping session ids to live workflow engines.
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/noder/workflow/core"
)

// Session pairs a live engine with its id and access times. The stop function
// tears down the session's persistence collaborator when the session goes away.
type Session struct {
	ID         string
	Engine     *core.Engine
	CreatedAt  time.Time
	LastAccess time.Time

	stop func()
}

// SessionStore holds active sessions with capacity-based eviction and TTL
// expiry.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
}

// NewSessionStore creates a new session store.
func NewSessionStore(maxSessions int, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
	}
}

// Create registers a new session around the given engine. The stop function
// may be nil; when set it runs once the session is evicted, expired, or
// deleted.
func (s *SessionStore) Create(engine *core.Engine, stop func()) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check capacity
	if len(s.sessions) >= s.maxSessions {
		// Evict oldest session
		var oldestID string
		var oldestTime time.Time
		for id, sess := range s.sessions {
			if oldestTime.IsZero() || sess.LastAccess.Before(oldestTime) {
				oldestID = id
				oldestTime = sess.LastAccess
			}
		}
		s.removeLocked(oldestID)
	}

	now := time.Now()
	sess := &Session{
		ID:         uuid.New().String(),
		Engine:     engine,
		CreatedAt:  now,
		LastAccess: now,
		stop:       stop,
	}

	s.sessions[sess.ID] = sess
	return sess
}

// Get retrieves a session by ID and updates its LastAccess time.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	sess.LastAccess = time.Now()
	return sess, true
}

// Delete removes a session and stops its collaborator. Reports whether the
// session existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	s.removeLocked(id)
	return true
}

// Len returns the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes sessions older than TTL.
func (s *SessionStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			s.removeLocked(id)
		}
	}
}

// StartCleanup starts a background cleanup goroutine and returns a stop function.
func (s *SessionStore) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

func (s *SessionStore) removeLocked(id string) {
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)
	if sess.stop != nil {
		sess.stop()
	}
}
