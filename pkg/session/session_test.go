package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dome317/lead-intelligence-bot/pkg/capture"
	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

const testGreeting = "Hey! I'm Alex. What brings you here today?"

func newTestManager() *Manager {
	return NewManager(capture.KeywordClassifier{}, testGreeting, time.Hour, nil)
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestSessionSeededWithGreeting(t *testing.T) {
	t.Parallel()
	s := newTestManager().Create()
	tr := s.Transcript()
	if len(tr) != 1 || tr[0].Role != types.RoleAgent || tr[0].Content != testGreeting {
		t.Fatalf("seed transcript = %+v", tr)
	}
	if s.CaptureState() != capture.StateAwaitingNameTrigger {
		t.Fatalf("capture state = %v", s.CaptureState())
	}
}

func TestSessionReplySlot(t *testing.T) {
	t.Parallel()
	s := newTestManager().Create()

	tr, ok := s.BeginReply("hello")
	if !ok {
		t.Fatal("BeginReply rejected")
	}
	if len(tr) != 2 || tr[1].Content != "hello" {
		t.Fatalf("snapshot = %+v", tr)
	}

	// Slot is held until FinishReply.
	if _, ok := s.BeginReply("again"); ok {
		t.Fatal("second BeginReply succeeded while streaming")
	}

	s.FinishReply("hi there")
	got := s.Transcript()
	if len(got) != 3 || got[2].Role != types.RoleAgent || got[2].Content != "hi there" {
		t.Fatalf("transcript after reply = %+v", got)
	}

	if _, ok := s.BeginReply("next"); !ok {
		t.Fatal("BeginReply rejected after slot released")
	}
}

func TestSessionFinishReplyEmptyAppendsNothing(t *testing.T) {
	t.Parallel()
	s := newTestManager().Create()
	s.BeginReply("hello")
	s.FinishReply("")
	if got := s.Transcript(); len(got) != 2 {
		t.Fatalf("transcript = %+v", got)
	}
}

func TestSessionCaptureFlowEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestManager().Create()
	events, cancel := s.Subscribe()
	defer cancel()

	// User turn, agent reply asking for the name.
	s.BeginReply("I want to grow my business")
	recvEvent(t, events) // user message
	s.FinishReply("Love it. What should I call you?")
	recvEvent(t, events) // agent message

	if got := s.ObserveCapture(ctx); got != capture.ActionRequestName {
		t.Fatalf("ObserveCapture = %v", got)
	}
	ev := recvEvent(t, events)
	if ev.Type != EventInputRequested || ev.Field != "name" {
		t.Fatalf("event = %+v", ev)
	}

	// Structured submission becomes a synthetic turn on both paths.
	if !s.SubmitName("Jordan") {
		t.Fatal("SubmitName rejected")
	}
	ev = recvEvent(t, events)
	if ev.Type != EventMessage || ev.Message == nil || ev.Message.Content != "My name is Jordan." {
		t.Fatalf("synthetic turn event = %+v", ev)
	}
	tr := s.Transcript()
	if tr[len(tr)-1].Content != "My name is Jordan." {
		t.Fatalf("transcript tail = %+v", tr[len(tr)-1])
	}

	// Email round.
	s.BeginReply("nice to meet you")
	recvEvent(t, events)
	s.FinishReply("Likewise, Jordan! What's the best email for you?")
	recvEvent(t, events)
	if got := s.ObserveCapture(ctx); got != capture.ActionRequestEmail {
		t.Fatalf("ObserveCapture = %v", got)
	}
	ev = recvEvent(t, events)
	if ev.Field != "email" {
		t.Fatalf("event = %+v", ev)
	}

	ok, fire := s.SubmitEmail("jordan@example.com")
	if !ok || !fire {
		t.Fatalf("SubmitEmail = %v, %v", ok, fire)
	}
	if s.CaptureState() != capture.StateEmailCollected {
		t.Fatalf("capture state = %v", s.CaptureState())
	}
}

func TestSessionExtractionFiresOnce(t *testing.T) {
	t.Parallel()
	s := newTestManager().Create()
	s.BeginReply("hi")
	s.FinishReply("what's your name?")
	s.ObserveCapture(context.Background())
	s.SubmitName("Sam")
	s.BeginReply("ok")
	s.FinishReply("and your email?")
	s.ObserveCapture(context.Background())

	// Concurrent duplicate submissions: exactly one fires extraction.
	var mu sync.Mutex
	fires := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, fire := s.SubmitEmail("sam@example.com"); fire {
				mu.Lock()
				fires++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if fires != 1 {
		t.Fatalf("extraction fired %d times, want 1", fires)
	}
}

func TestSessionEnd(t *testing.T) {
	t.Parallel()
	s := newTestManager().Create()
	events, cancel := s.Subscribe()
	defer cancel()

	s.End()
	s.End() // idempotent

	ev := recvEvent(t, events)
	if ev.Type != EventEnded {
		t.Fatalf("event = %+v", ev)
	}
	if _, ok := <-events; ok {
		t.Fatal("channel not closed after end")
	}

	select {
	case <-s.Context().Done():
	default:
		t.Fatal("session context not cancelled")
	}

	if _, ok := s.BeginReply("late"); ok {
		t.Fatal("BeginReply accepted after end")
	}
	if s.SubmitName("late") {
		t.Fatal("SubmitName accepted after end")
	}
	before := len(s.Transcript())
	s.FinishReply("late reply")
	if len(s.Transcript()) != before {
		t.Fatal("transcript grew after end")
	}
}

func TestSessionSubscribeAfterEnd(t *testing.T) {
	t.Parallel()
	s := newTestManager().Create()
	s.End()
	ch, cancel := s.Subscribe()
	defer cancel()
	if _, ok := <-ch; ok {
		t.Fatal("subscription to ended session should be closed")
	}
}

func TestManagerLifecycle(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	s := m.Create()

	if got, ok := m.Get(s.ID); !ok || got != s {
		t.Fatalf("Get = %v, %v", got, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d", m.Len())
	}

	if !m.End(s.ID) {
		t.Fatal("End reported missing session")
	}
	if !s.Ended() {
		t.Fatal("session not ended")
	}
	if m.End(s.ID) {
		t.Fatal("End succeeded twice")
	}
	if _, ok := m.Get(s.ID); ok {
		t.Fatal("ended session still resolvable")
	}
}

func TestManagerSweep(t *testing.T) {
	t.Parallel()
	m := NewManager(capture.KeywordClassifier{}, testGreeting, time.Minute, nil)
	fresh := m.Create()
	stale := m.Create()

	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-time.Hour)
	stale.mu.Unlock()

	if got := m.Sweep(time.Now()); got != 1 {
		t.Fatalf("Sweep = %d, want 1", got)
	}
	if stale.Ended() != true || fresh.Ended() {
		t.Fatalf("sweep ended wrong sessions: stale=%v fresh=%v", stale.Ended(), fresh.Ended())
	}
	if _, ok := m.Get(fresh.ID); !ok {
		t.Fatal("fresh session evicted")
	}
}

func TestManagerCloseAll(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	a, b := m.Create(), m.Create()
	m.CloseAll()
	if !a.Ended() || !b.Ended() {
		t.Fatal("CloseAll left sessions running")
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d", m.Len())
	}
}
