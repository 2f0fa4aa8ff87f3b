package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and early development.
// It mirrors the redis store's semantics, including last-writer-wins updates.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session

	// FailUpdates forces UpdateStatus to return FailErr, for exercising the
	// best-effort write paths.
	FailUpdates bool
	FailErr     error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}}
}

func (m *MemoryStore) Get(ctx context.Context, callID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Put(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.CallID] = s
	return nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, callID string, u StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpdates {
		return m.FailErr
	}
	s, ok := m.sessions[callID]
	if !ok {
		return ErrNotFound
	}
	s.Apply(u)
	m.sessions[callID] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, callID)
	return nil
}
