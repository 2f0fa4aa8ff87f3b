package registry

import (
	"context"
	"time"
)

// Registration is one (user, device) push address.
//
// PushToken is opaque and revocable; it is kept out of JSON responses and a
// stale token at read time is a recoverable condition, not a fatal one.
// Registrations are created and refreshed by the receiving client; the relay
// only ever reads them when resolving where to ring.
type Registration struct {
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id"`
	PushToken string    `json:"-"`
	Platform  string    `json:"platform,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Registry is the device-registration collaborator.
//
// List returns the user's registrations ordered most recently refreshed
// first, ties broken by device id. The ordering is part of the contract:
// push-token selection is "first qualifying registration wins", so callers
// ring the device the user touched last.
type Registry interface {
	List(ctx context.Context, userID string) ([]Registration, error)
	Put(ctx context.Context, r Registration) error
}

// ResolvePushToken picks the address to ring: the first registration in order
// that carries a non-empty push token. Registrations with revoked (empty)
// tokens are skipped rather than treated as errors.
func ResolvePushToken(regs []Registration) (string, bool) {
	for _, r := range regs {
		if r.PushToken != "" {
			return r.PushToken, true
		}
	}
	return "", false
}
