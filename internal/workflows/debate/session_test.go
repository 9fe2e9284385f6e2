package debate

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
)

func stub(id, name string) backend.Backend {
	return backend.NewFunc(id, name, func(context.Context, string, string, backend.Tunables) (string, error) {
		return id, nil
	})
}

func newTestSession(t *testing.T, rounds int) (*Session, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	sess := NewSession(bus, stub("a", "Claude3"), stub("b", "OpenAI"), rounds, "brief")
	return sess, bus
}

func TestNewSession(t *testing.T) {
	sess, _ := newTestSession(t, 2)

	if sess.Status() != StatusPending {
		t.Errorf("Status() = %q, want %q", sess.Status(), StatusPending)
	}
	if !strings.HasPrefix(sess.ID(), "debate-a-b-") {
		t.Errorf("ID() = %q", sess.ID())
	}
	if sess.Rounds() != 2 {
		t.Errorf("Rounds() = %d", sess.Rounds())
	}
	if sess.Transcript().Len() != 0 {
		t.Errorf("transcript should start empty")
	}
	if sess.Material() != "brief" {
		t.Errorf("Material() = %q, want the opening brief", sess.Material())
	}
}

func TestNewSession_UniqueIDs(t *testing.T) {
	s1, _ := newTestSession(t, 1)
	s2, _ := newTestSession(t, 1)
	if s1.ID() == s2.ID() {
		t.Error("sessions between the same pair should have distinct ids")
	}
}

func TestStart(t *testing.T) {
	sess, bus := newTestSession(t, 1)

	var received event.Event
	bus.Subscribe(event.TypeDebateStarted, func(e event.Event) { received = e })

	if err := sess.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if sess.Status() != StatusActive {
		t.Errorf("Status() = %q, want active", sess.Status())
	}
	started, ok := received.(event.DebateStartedEvent)
	if !ok {
		t.Fatalf("expected DebateStartedEvent, got %T", received)
	}
	if started.SessionID != sess.ID() || started.A != "a" || started.B != "b" || started.Rounds != 1 {
		t.Errorf("event = %+v", started)
	}

	if err := sess.Start(); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestRecord_BeforeStart(t *testing.T) {
	sess, _ := newTestSession(t, 1)
	if _, err := sess.Record(RoleA, "x", nil); err == nil {
		t.Error("Record() before Start() should fail")
	}
}

func TestRecord_Alternation(t *testing.T) {
	sess, _ := newTestSession(t, 2)
	if err := sess.Start(); err != nil {
		t.Fatal(err)
	}

	if _, err := sess.Record(RoleB, "out of turn", nil); err == nil {
		t.Fatal("B must not open the debate")
	}

	for i, role := range []Role{RoleA, RoleB, RoleA, RoleB} {
		got, _, _ := sess.Next()
		if got != role {
			t.Fatalf("turn %d: Next() = %s, want %s", i, got, role)
		}
		turn, err := sess.Record(role, string(role)+"-says", nil)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if turn.Index != i {
			t.Errorf("turn %d: Index = %d", i, turn.Index)
		}
	}

	if sess.Status() != StatusEnded {
		t.Errorf("Status() = %q, want ended after 2R turns", sess.Status())
	}
	if _, err := sess.Record(RoleA, "extra", nil); err == nil {
		t.Error("Record() after the last turn should fail")
	}
}

func TestRecord_FailedTurn(t *testing.T) {
	sess, bus := newTestSession(t, 1)
	var turnEvent event.DebateTurnEvent
	bus.Subscribe(event.TypeDebateTurn, func(e event.Event) { turnEvent = e.(event.DebateTurnEvent) })
	_ = sess.Start()

	cause := errors.NewBackendError(errors.KindTimeout, "a", "slow", nil)
	if _, err := sess.Record(RoleA, "[Claude3 could not respond: BackendTimeout]", cause); err != nil {
		t.Fatal(err)
	}

	if !turnEvent.Failed || turnEvent.SpeakerName != "Claude3" {
		t.Errorf("turn event = %+v", turnEvent)
	}
	failures := sess.Failures()
	if len(failures) != 1 || failures[0].Stage != "debate" || failures[0].BackendID != "a" {
		t.Errorf("Failures() = %+v", failures)
	}
	if len(sess.Errors()) != 1 {
		t.Errorf("Errors() = %v", sess.Errors())
	}
	if sess.Transcript().Successes() != 0 {
		t.Error("failed turn counted as success")
	}
}

func TestStop(t *testing.T) {
	sess, bus := newTestSession(t, 3)
	var ended []event.DebateEndedEvent
	bus.Subscribe(event.TypeDebateEnded, func(e event.Event) { ended = append(ended, e.(event.DebateEndedEvent)) })
	_ = sess.Start()
	_, _ = sess.Record(RoleA, "hi", nil)

	if err := sess.Stop(StatusEnded); err == nil {
		t.Error("Stop(ended) should be rejected")
	}
	if err := sess.Stop(StatusCanceled); err != nil {
		t.Fatal(err)
	}
	if sess.Status() != StatusCanceled {
		t.Errorf("Status() = %q", sess.Status())
	}
	// Terminal sessions ignore further stops.
	if err := sess.Stop(StatusTerminated); err != nil {
		t.Fatal(err)
	}
	if sess.Status() != StatusCanceled {
		t.Error("status changed after terminal stop")
	}
	if len(ended) != 1 || ended[0].Turns != 1 || ended[0].Status != string(StatusCanceled) {
		t.Errorf("ended events = %+v", ended)
	}
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	tr.Append(Turn{Role: RoleA, SpeakerName: "Claude3", Text: "A-says"})
	tr.Append(Turn{Role: RoleB, SpeakerName: "OpenAI", Text: "B-says"})

	want := "Oracle Claude3 said: A-says\nOracle OpenAI said: B-says"
	if tr.String() != want {
		t.Errorf("String() = %q, want %q", tr.String(), want)
	}
	if tr.Material() != want {
		t.Error("Material() should equal String()")
	}

	turns := tr.Turns()
	turns[0].Text = "mutated"
	if tr.Turns()[0].Text != "A-says" {
		t.Error("Turns() must return a copy")
	}
}

func TestTranscript_ConcurrentReads(t *testing.T) {
	var tr Transcript
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = tr.String()
				_ = tr.Len()
			}
		}()
	}
	for i := range 50 {
		tr.Append(Turn{Text: strings.Repeat("x", i)})
	}
	wg.Wait()
	if tr.Len() != 50 {
		t.Errorf("Len() = %d", tr.Len())
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status SessionStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusActive, false},
		{StatusEnded, true},
		{StatusTerminated, true},
		{StatusCanceled, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
