package history

import "time"

// Transition is one immutable audit record of a call status change.
//
// Invariants:
// - Records are append-only; there is no update or delete path.
// - Appending is best-effort from the relay's perspective: a history failure
//   must never fail the call operation that triggered it.
//
// Storage recommendation (Postgres):
// - Table call_status_history with an INSERT-only policy.
// - Optional: partition by time for retention.
type Transition struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	// Status is the state entered by this transition.
	Status string `json:"status" db:"status"`

	// ActorID and ActorRole capture who drove the transition, when known.
	ActorID   string `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
