package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested session record does not exist.
var ErrNotFound = errors.New("session: not found")

// StatusUpdate is a partial write against a stored session: only the status
// field (and the actor bookkeeping that goes with it) is touched. Channel
// credentials are never writable through this path.
type StatusUpdate struct {
	Status  Status
	ActorID string
	Role    string
	At      time.Time
}

// Store is the persistence contract for call sessions.
//
// The relay holds no state between requests; every operation reads current
// state through Get and writes back through UpdateStatus. Implementations are
// not required to serialize concurrent writers to the same call id; the last
// status writer wins.
//
// Put and Delete exist for provisioning tooling and tests. The End operation
// never deletes a record.
type Store interface {
	Get(ctx context.Context, callID string) (Session, error)
	Put(ctx context.Context, s Session) error
	UpdateStatus(ctx context.Context, callID string, u StatusUpdate) error
	Delete(ctx context.Context, callID string) error
}
