package session

import (
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	Put(s *Session) error
	Get(id string) (*Session, error)
	// Update applies fn to the stored session atomically. The session is only
	// written back when fn returns nil.
	Update(id string, fn func(s *Session) error) (*Session, error)
	Delete(id string) error
	// Prune drops sessions not updated since before and returns how many
	// were dropped.
	Prune(before time.Time) int
	Len() int
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore() Store {
	return &memoryStore{sessions: map[string]*Session{}}
}

func (m *memoryStore) Put(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memoryStore) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memoryStore) Update(id string, fn func(s *Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := s.Clone()
	if err := fn(work); err != nil {
		return s.Clone(), err
	}
	m.sessions[id] = work
	return work.Clone(), nil
}

func (m *memoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) Prune(before time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
