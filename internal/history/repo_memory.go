package history

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests
// and for running the relay without a database.
type MemoryRepo struct {
	mu          sync.Mutex
	transitions []Transition
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, tr Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
	return nil
}

func (r *MemoryRepo) ListByCall(ctx context.Context, callID string) ([]Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, 0)
	for _, tr := range r.transitions {
		if tr.CallID == callID {
			out = append(out, tr)
		}
	}
	return out, nil
}
