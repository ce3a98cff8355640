package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/kozaktomas/fieldreport/internal/constants"
)

// Manager creates and tracks editing sessions.
type Manager struct {
	store    Store
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
	mu       sync.RWMutex

	stopOnce sync.Once
	stop     chan struct{}
}

// NewManager returns a manager whose sessions persist drafts in store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		ttl:      constants.SessionDuration,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
}

// Create starts a new empty session.
func (m *Manager) Create() (*Session, error) {
	idBytes := make([]byte, 24)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	s := New(base64.RawURLEncoding.EncodeToString(idBytes), m.store)
	s.now = m.now
	s.CreatedAt = m.now()
	s.ExpiresAt = s.CreatedAt.Add(m.ttl)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given ID, nil when it does not exist
// or has expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if m.now().After(s.ExpiresAt) {
		m.Delete(id)
		return nil
	}
	return s
}

// Delete clears and forgets a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Clear()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// cleanup removes expired sessions.
func (m *Manager) cleanup() {
	now := m.now()
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		s.Clear()
	}
}

// StartCleanup removes expired sessions every interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanup()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}
