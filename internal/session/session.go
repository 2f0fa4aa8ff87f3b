package session

import "time"

// Session is the durable call-session record, keyed by an externally generated
// opaque call id.
//
// Invariants:
// - ChannelName and MediaToken are written once by the provisioning actor and
//   are immutable for the session's lifetime. The relay only reads them and
//   forwards them to participants.
// - MediaToken is a credential. It is returned to call participants but must
//   never be logged.
type Session struct {
	CallID      string `json:"call_id"`
	ChannelName string `json:"channel_name"`
	MediaToken  string `json:"media_token"`

	Status Status `json:"status"`

	CallerID string `json:"caller_id,omitempty"`
	CalleeID string `json:"callee_id,omitempty"`

	// EndedBy / EndedRole record who hung up, when the caller supplied that.
	EndedBy   string `json:"ended_by,omitempty"`
	EndedRole string `json:"ended_role,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Status string

const (
	StatusCreated  Status = "created"
	StatusRinging  Status = "ringing"
	StatusAccepted Status = "accepted"
	StatusEnded    Status = "ended"
)

// Provisioned reports whether the record carries the channel credentials that
// get handed to participants. A stored record without them is a provisioning
// defect, which callers must surface distinctly from the record being absent.
func (s Session) Provisioned() bool {
	return s.ChannelName != "" && s.MediaToken != ""
}

// EffectiveStatus treats a record the provisioner wrote without a status
// field as freshly created.
func (s Session) EffectiveStatus() Status {
	if s.Status == "" {
		return StatusCreated
	}
	return s.Status
}

// CanTransition reports whether moving from one status to another is a legal
// lifecycle step. Ended is terminal: nothing transitions out of it.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusRinging:
		return from == StatusCreated || from == StatusRinging
	case StatusAccepted:
		// Accept without an observed ring is tolerated (e.g. a polling client),
		// so created -> accepted is legal alongside ringing -> accepted.
		return from == StatusCreated || from == StatusRinging
	case StatusEnded:
		return from == StatusCreated || from == StatusRinging || from == StatusAccepted
	default:
		return false
	}
}

// Apply folds a status update into the record. Optional actor fields only
// stick on a terminal transition; UpdatedAt moves only when the update
// carries a timestamp.
func (s *Session) Apply(u StatusUpdate) {
	s.Status = u.Status
	if u.Status == StatusEnded {
		if u.ActorID != "" {
			s.EndedBy = u.ActorID
		}
		if u.Role != "" {
			s.EndedRole = u.Role
		}
	}
	if !u.At.IsZero() {
		s.UpdatedAt = u.At
	}
}
