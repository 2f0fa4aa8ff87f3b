package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"call-relay/internal/history"
	"call-relay/internal/push"
	"call-relay/internal/registry"
	"call-relay/internal/session"
)

// Error taxonomy surfaced to callers. The three kinds are distinguished so
// the calling application can branch ("user offline" on not-found device vs.
// "try again" on a dependency failure). None of them is retried internally.
var (
	ErrInvalidRequest    = errors.New("relay: invalid request")
	ErrNotFound          = errors.New("relay: not found")
	ErrDependencyFailure = errors.New("relay: dependency failure")
)

const (
	RoleCaller = "caller"
	RoleCallee = "callee"
)

// Service orchestrates the call-signaling handshake: it resolves session
// credentials, rings the callee's device, and records status transitions.
//
// Each operation is a stateless transaction: read current state, decide,
// write back. No lock is held across the fetch -> notify -> update sequence,
// so concurrent operations on the same call id race and the last status
// writer wins.
//
// Device resolution is server-side: the callee's registered devices are
// looked up in the registry and the first registration with a usable push
// token is rung. Callers never supply device addresses.
type Service struct {
	store      session.Store
	devices    registry.Registry
	dispatcher push.Dispatcher

	// hist is optional; nil disables the status audit trail.
	hist *history.Service

	log   *slog.Logger
	clock func() time.Time
}

func NewService(store session.Store, devices registry.Registry, dispatcher push.Dispatcher, hist *history.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      store,
		devices:    devices,
		dispatcher: dispatcher,
		hist:       hist,
		log:        log,
		clock:      time.Now,
	}
}

type InitiateRequest struct {
	CallID   string `json:"call_id"`
	CallerID string `json:"caller_id"`
	CalleeID string `json:"callee_id"`
}

type AcceptRequest struct {
	CallID string `json:"call_id"`
	// CalleeID is optional metadata recorded as the accepting actor.
	CalleeID string `json:"callee_id,omitempty"`
}

type EndRequest struct {
	CallID string `json:"call_id"`
	// UserID and Role are optional audit metadata: who hung up, and whether
	// they were the caller or the callee.
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
}

// CallInfo is what a participant needs to join the media channel.
type CallInfo struct {
	ChannelName string `json:"channel_name"`
	MediaToken  string `json:"media_token"`
}

// Initiate resolves the session's credentials, rings the callee's device and
// marks the session ringing.
//
// Ordering contract: success is reported only if the ring dispatch itself
// succeeded. The status write to ringing is best-effort; if it fails after a
// successful dispatch, the callee's phone is already ringing, so the failure
// is logged and the call still succeeds.
//
// Repeated Initiate calls each trigger a fresh ring; deduplication is the
// calling application's policy, not ours.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (CallInfo, error) {
	if req.CallID == "" || req.CallerID == "" || req.CalleeID == "" {
		return CallInfo{}, ErrInvalidRequest
	}

	sess, err := s.fetchProvisioned(ctx, req.CallID)
	if err != nil {
		return CallInfo{}, err
	}

	regs, err := s.devices.List(ctx, req.CalleeID)
	if err != nil {
		s.log.Error("device lookup failed", "call_id", req.CallID, "err", err)
		return CallInfo{}, fmt.Errorf("%w: device lookup", ErrDependencyFailure)
	}
	token, ok := registry.ResolvePushToken(regs)
	if !ok {
		return CallInfo{}, fmt.Errorf("%w: no registered device for callee", ErrNotFound)
	}

	payload := push.NewRingPayload(req.CallID, req.CallerID, sess.ChannelName, sess.MediaToken)
	if err := s.dispatcher.Send(ctx, token, payload); err != nil {
		s.log.Error("ring dispatch failed", "call_id", req.CallID, "err", err)
		return CallInfo{}, fmt.Errorf("%w: ring dispatch", ErrDependencyFailure)
	}

	s.recordTransition(ctx, sess, session.StatusRinging, req.CallerID, RoleCaller)

	return CallInfo{ChannelName: sess.ChannelName, MediaToken: sess.MediaToken}, nil
}

// Accept confirms the session exists and returns its credentials to the
// accepting party. No notification is sent: accepting is a pull by the
// callee, who already knows it is accepting. A prior ring does not need to
// have been observed, and an already-ended session still yields its
// credentials (the status write is simply skipped).
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (CallInfo, error) {
	if req.CallID == "" {
		return CallInfo{}, ErrInvalidRequest
	}

	sess, err := s.fetchProvisioned(ctx, req.CallID)
	if err != nil {
		return CallInfo{}, err
	}

	s.recordTransition(ctx, sess, session.StatusAccepted, req.CalleeID, RoleCallee)

	return CallInfo{ChannelName: sess.ChannelName, MediaToken: sess.MediaToken}, nil
}

// End marks the session ended, capturing who ended it when supplied. The
// record is retained, never deleted. Ending an already-ended session is a
// no-op success.
//
// Unlike Initiate/Accept, the status write here IS the operation's effect, so
// a store failure surfaces as a dependency failure instead of being
// swallowed.
func (s *Service) End(ctx context.Context, req EndRequest) error {
	if req.CallID == "" {
		return ErrInvalidRequest
	}

	sess, err := s.store.Get(ctx, req.CallID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("%w: session", ErrNotFound)
		}
		s.log.Error("session read failed", "call_id", req.CallID, "err", err)
		return fmt.Errorf("%w: session read", ErrDependencyFailure)
	}
	if sess.EffectiveStatus() == session.StatusEnded {
		return nil
	}

	u := session.StatusUpdate{
		Status:  session.StatusEnded,
		ActorID: req.UserID,
		Role:    req.Role,
		At:      s.clock().UTC(),
	}
	if err := s.store.UpdateStatus(ctx, req.CallID, u); err != nil {
		s.log.Error("status update failed", "call_id", req.CallID, "to", session.StatusEnded, "err", err)
		return fmt.Errorf("%w: status update", ErrDependencyFailure)
	}

	s.appendHistory(ctx, req.CallID, session.StatusEnded, req.UserID, req.Role)
	return nil
}

// fetchProvisioned loads the session and verifies it carries channel
// credentials. Both "no record" and "record without credentials" come back as
// not-found to the caller, but the latter is a provisioning defect and is
// logged distinctly.
func (s *Service) fetchProvisioned(ctx context.Context, callID string) (session.Session, error) {
	sess, err := s.store.Get(ctx, callID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, fmt.Errorf("%w: session", ErrNotFound)
		}
		s.log.Error("session read failed", "call_id", callID, "err", err)
		return session.Session{}, fmt.Errorf("%w: session read", ErrDependencyFailure)
	}
	if !sess.Provisioned() {
		s.log.Warn("session record missing channel credentials", "call_id", callID)
		return session.Session{}, fmt.Errorf("%w: session not provisioned", ErrNotFound)
	}
	return sess, nil
}

// recordTransition applies a best-effort status write plus history append.
// By contract the user-visible outcome is already decided when this runs:
// failures are logged and swallowed, and an illegal transition (e.g. onto an
// ended session) is skipped rather than rejected.
func (s *Service) recordTransition(ctx context.Context, sess session.Session, to session.Status, actorID, role string) {
	if !session.CanTransition(sess.EffectiveStatus(), to) {
		s.log.Debug("status transition skipped", "call_id", sess.CallID, "from", sess.EffectiveStatus(), "to", to)
		return
	}
	u := session.StatusUpdate{Status: to, ActorID: actorID, Role: role, At: s.clock().UTC()}
	if err := s.store.UpdateStatus(ctx, sess.CallID, u); err != nil {
		s.log.Error("status update failed", "call_id", sess.CallID, "to", to, "err", err)
		return
	}
	s.appendHistory(ctx, sess.CallID, to, actorID, role)
}

func (s *Service) appendHistory(ctx context.Context, callID string, st session.Status, actorID, role string) {
	if s.hist == nil {
		return
	}
	if err := s.hist.Record(ctx, callID, string(st), actorID, role); err != nil {
		s.log.Warn("history append failed", "call_id", callID, "err", err)
	}
}
