// Package session holds the in-session conversation state, keyed by user
// and independent of any presentation layer.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visionnaire/assistant-go/core"
)

// Session is the conversation state accumulated within one interactive
// session. It is not yet persisted for the current turn; the durable chat
// log is owned by the turn recorder.
type Session struct {
	ID             string
	UserID         string
	Messages       []core.Message
	StartedAt      time.Time
	LastActivityAt time.Time
}

// Manager tracks one active session per user.
type Manager struct {
	mu                sync.RWMutex
	byUser            map[string]*Session
	inactivityTimeout time.Duration
}

// NewManager creates a Manager.
func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		byUser:            make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
	}
}

// Get returns the user's active session, creating one if needed. A session
// idle past the inactivity timeout is replaced by a fresh one.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	s, ok := m.byUser[userID]
	if ok && now.Sub(s.LastActivityAt) < m.inactivityTimeout {
		s.LastActivityAt = now
		return clone(s)
	}

	s = &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		StartedAt:      now,
		LastActivityAt: now,
	}
	m.byUser[userID] = s
	return clone(s)
}

// History returns the session history for the user, empty if no session is
// active.
func (m *Manager) History(userID string) []core.Message {
	return m.Get(userID).Messages
}

// SetHistory replaces the user's session history after a completed turn.
func (m *Manager) SetHistory(userID string, history []core.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byUser[userID]
	if !ok {
		return
	}
	s.Messages = append([]core.Message(nil), history...)
	s.LastActivityAt = time.Now().UTC()
}

// End discards the user's session.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUser, userID)
}

func clone(s *Session) *Session {
	c := *s
	c.Messages = append([]core.Message(nil), s.Messages...)
	return &c
}
