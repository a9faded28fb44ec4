// Package session hosts per-conversation state: the transcript, the
// contact-capture machine, and the one-shot extraction guard. Sessions are
// process-local and transient; they never share mutable state with each
// other except through the global lead store.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dome317/lead-intelligence-bot/pkg/capture"
	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

// EventType tags events on a session's live channel.
type EventType string

const (
	// EventMessage fires for every message appended to the transcript,
	// including synthetic contact-capture turns.
	EventMessage EventType = "message"
	// EventInputRequested asks the UI to show the structured field.
	EventInputRequested EventType = "input_requested"
	// EventLeadCaptured reports the extracted, stored lead.
	EventLeadCaptured EventType = "lead_captured"
	// EventEnded closes the conversation.
	EventEnded EventType = "session_ended"
)

// Event is one live-channel notification.
type Event struct {
	Type    EventType      `json:"type"`
	Message *types.Message `json:"message,omitempty"`
	Field   string         `json:"field,omitempty"` // "name" or "email"
	Lead    *types.Lead    `json:"lead,omitempty"`
}

// Session owns one conversation. All transcript and capture access is
// serialized by its mutex; the streaming reply path holds a per-session
// reply slot so at most one completion stream is in flight.
type Session struct {
	ID string

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	transcript types.Transcript
	machine    *capture.Machine
	subs       map[chan Event]struct{}
	replying   bool
	ended      bool
	lastActive time.Time

	// extractFired is the one-shot extraction guard, deliberately separate
	// from the capture machine's state so duplicate submissions or
	// re-renders cannot re-trigger extraction.
	extractFired atomic.Bool
}

func newSession(id string, classifier capture.TurnClassifier, greeting string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         id,
		ctx:        ctx,
		cancel:     cancel,
		machine:    capture.NewMachine(classifier),
		subs:       make(map[chan Event]struct{}),
		lastActive: time.Now(),
	}
	if greeting != "" {
		s.transcript = s.transcript.Append(types.Message{Role: types.RoleAgent, Content: greeting})
	}
	return s
}

// Context is cancelled when the session ends; the streaming reply path
// derives its request context from it so ending a session abandons any
// in-flight stream.
func (s *Session) Context() context.Context { return s.ctx }

// Transcript returns a snapshot safe to hand to the completion gateway
// while the session keeps running.
func (s *Session) Transcript() types.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Clone()
}

// CaptureState exposes the machine state for status responses.
func (s *Session) CaptureState() capture.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// Ended reports whether End has been called.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// BeginReply reserves the session's single reply slot and appends the
// user's turn. It fails when the session has ended or a reply is already
// streaming. The returned snapshot includes the new turn.
func (s *Session) BeginReply(content string) (types.Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || s.replying {
		return nil, false
	}
	s.replying = true
	s.appendLocked(types.Message{Role: types.RoleUser, Content: content})
	return s.transcript.Clone(), true
}

// FinishReply appends the reassembled agent reply (when non-empty) and
// releases the reply slot. No message is appended after the session ends.
func (s *Session) FinishReply(reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replying = false
	if s.ended || reply == "" {
		return
	}
	s.appendLocked(types.Message{Role: types.RoleAgent, Content: reply})
}

// ObserveCapture evaluates the capture machine against the transcript after
// an agent turn and broadcasts an input request when a transition fires.
// Re-evaluating the same transcript is a no-op.
func (s *Session) ObserveCapture(ctx context.Context) capture.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return capture.ActionNone
	}
	action := s.machine.Observe(ctx, s.transcript)
	switch action {
	case capture.ActionRequestName:
		s.broadcastLocked(Event{Type: EventInputRequested, Field: "name"})
	case capture.ActionRequestEmail:
		s.broadcastLocked(Event{Type: EventInputRequested, Field: "email"})
	}
	return action
}

// SubmitName records the structured name. The synthetic turn is appended to
// the transcript and pushed to the live channel — both paths, intentionally.
func (s *Session) SubmitName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	msg, ok := s.machine.SubmitName(name)
	if !ok {
		return false
	}
	s.appendLocked(msg)
	return true
}

// SubmitEmail records the structured email. The second return value is true
// exactly once per session: the cue to run lead extraction.
func (s *Session) SubmitEmail(email string) (ok, fireExtract bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false, false
	}
	msg, ok := s.machine.SubmitEmail(email)
	if !ok {
		return false, false
	}
	s.appendLocked(msg)
	return true, s.extractFired.CompareAndSwap(false, true)
}

// LeadCaptured announces the stored lead on the live channel.
func (s *Session) LeadCaptured(lead types.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.broadcastLocked(Event{Type: EventLeadCaptured, Lead: &lead})
}

// Subscribe attaches a live-channel consumer. The returned cancel func
// detaches it; the channel is closed on detach or session end.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// End terminates the session: cancels the in-flight stream context,
// notifies and closes live subscribers, and blocks further appends.
// Idempotent.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.broadcastLocked(Event{Type: EventEnded})
	for ch := range s.subs {
		close(ch)
	}
	s.subs = make(map[chan Event]struct{})
	s.cancel()
}

func (s *Session) appendLocked(m types.Message) {
	s.transcript = s.transcript.Append(m)
	s.lastActive = time.Now()
	msg := m
	s.broadcastLocked(Event{Type: EventMessage, Message: &msg})
}

// broadcastLocked delivers to every subscriber without blocking; a consumer
// that stopped draining loses events rather than stalling the session.
func (s *Session) broadcastLocked(ev Event) {
	s.lastActive = time.Now()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
