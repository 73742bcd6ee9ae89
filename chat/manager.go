package chat

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns the live sessions of a server process.
type Manager struct {
	adviser     Adviser
	maxSessions int
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. When maxSessions is reached, creating a
// session evicts the one that has been idle longest; 0 means unbounded.
func NewManager(adviser Adviser, maxSessions int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		adviser:     adviser,
		maxSessions: maxSessions,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.adviser, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.evictOldestLocked()
	}
	m.sessions[s.ID()] = s

	m.logger.Debug("session created", zap.String("session", s.ID()), zap.Int("live", len(m.sessions)))
	return s
}

// Get looks up a session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return s, ok
}

// Delete closes and forgets a session. It reports whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.logger.Debug("session deleted", zap.String("session", id))
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) evictOldestLocked() {
	var oldest *Session
	for _, s := range m.sessions {
		if oldest == nil || s.LastActive().Before(oldest.LastActive()) {
			oldest = s
		}
	}
	if oldest == nil {
		return
	}

	delete(m.sessions, oldest.ID())
	oldest.Close()
	m.logger.Info("evicted idle session", zap.String("session", oldest.ID()))
}
