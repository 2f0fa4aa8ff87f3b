package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryRegistry is an in-memory Registry for tests. It applies the same
// ordering contract as the redis implementation.
type MemoryRegistry struct {
	mu   sync.Mutex
	regs map[string][]Registration // keyed by user id

	// FailList forces List to return FailErr, for exercising dependency
	// failure paths.
	FailList bool
	FailErr  error
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{regs: map[string][]Registration{}}
}

func (m *MemoryRegistry) List(ctx context.Context, userID string) ([]Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailList {
		return nil, m.FailErr
	}
	out := make([]Registration, len(m.regs[userID]))
	copy(out, m.regs[userID])
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out, nil
}

func (m *MemoryRegistry) Put(ctx context.Context, r Registration) error {
	if r.UserID == "" || r.DeviceID == "" {
		return errors.New("registry: user id and device id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.regs[r.UserID] {
		if existing.DeviceID == r.DeviceID {
			m.regs[r.UserID][i] = r
			return nil
		}
	}
	m.regs[r.UserID] = append(m.regs[r.UserID], r)
	return nil
}
