package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the status audit trail.
// It MUST be append-only; no update or delete methods are provided.
type Repository interface {
	Append(ctx context.Context, tr Transition) error
	ListByCall(ctx context.Context, callID string) ([]Transition, error)
}

var ErrInvalidTransition = errors.New("history: invalid transition record")

// Service stamps and appends status transitions.
//
// The history feature is optional: the relay treats a nil *Service as
// "history disabled" and skips recording entirely.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Record(ctx context.Context, callID, status, actorID, actorRole string) error {
	if s.repo == nil {
		return errors.New("history: repository not configured")
	}
	if callID == "" || status == "" {
		return ErrInvalidTransition
	}
	return s.repo.Append(ctx, Transition{
		ID:        uuid.NewString(),
		CallID:    callID,
		Status:    status,
		ActorID:   actorID,
		ActorRole: actorRole,
		CreatedAt: s.clock().UTC(),
	})
}

func (s *Service) List(ctx context.Context, callID string) ([]Transition, error) {
	if s.repo == nil {
		return nil, errors.New("history: repository not configured")
	}
	if callID == "" {
		return nil, ErrInvalidTransition
	}
	return s.repo.ListByCall(ctx, callID)
}
