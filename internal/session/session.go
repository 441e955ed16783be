// Package session keeps short-lived conversation history for follow-up
// questions. Sessions expire after a TTL and are held in memory only.
package session

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"medrag/internal/model"
)

type Session struct {
	mu       sync.Mutex
	Messages []model.Message
}

type Manager struct {
	mu              sync.Mutex // serializes get-or-create in Get
	store           *gocache.Cache
	contextMessages int
}

// NewManager creates a session manager. ttl bounds how long an idle
// conversation survives; contextMessages caps how many previous turns
// Context returns.
func NewManager(ttl time.Duration, contextMessages int) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if contextMessages <= 0 {
		contextMessages = 4
	}
	return &Manager{
		store:           gocache.New(ttl, 2*ttl),
		contextMessages: contextMessages,
	}
}

// Get returns the session for id, creating it on first use. Each access
// refreshes the TTL.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.store.Get(id); ok {
		sess := s.(*Session)
		m.store.SetDefault(id, sess)
		return sess
	}
	sess := &Session{}
	m.store.SetDefault(id, sess)
	return sess
}

// Record appends one user/assistant exchange to a session.
func (m *Manager) Record(id, query, answer string) {
	s := m.Get(id)
	s.AddUser(query)
	s.AddAssistant(answer)
}

// Delete drops a session immediately.
func (m *Manager) Delete(id string) {
	m.store.Delete(id)
}

func (s *Session) AddUser(content string) {
	s.add("user", content)
}

func (s *Session) AddAssistant(content string) {
	s.add("assistant", content)
}

func (s *Session) add(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, model.Message{Role: role, Content: content})
}

// Context returns the most recent turns, up to the manager's cap, oldest
// first.
func (m *Manager) Context(id string) []model.Message {
	s, ok := m.store.Get(id)
	if !ok {
		return nil
	}
	sess := s.(*Session)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	n := len(sess.Messages)
	if n > m.contextMessages {
		n = m.contextMessages
	}
	out := make([]model.Message, n)
	copy(out, sess.Messages[len(sess.Messages)-n:])
	return out
}
