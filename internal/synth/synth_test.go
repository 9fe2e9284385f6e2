package synth

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/prompt"
)

type recorder struct {
	mu     sync.Mutex
	calls  int
	system string
	user   string
}

func (r *recorder) backend(reply string, err error) backend.Backend {
	return backend.NewFunc("judge", "Judge", func(_ context.Context, system, user string, _ backend.Tunables) (string, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls++
		r.system, r.user = system, user
		return reply, err
	})
}

func problem(t *testing.T) ensemble.Problem {
	t.Helper()
	p, err := ensemble.NewProblem("what is the answer")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSynthesize(t *testing.T) {
	rec := &recorder{}
	s := New()

	got, err := s.Synthesize(context.Background(), Text("A: 42"), problem(t), prompt.DebateSummary, rec.backend("  42 \n", nil))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got != "42" {
		t.Errorf("answer = %q, want trimmed 42", got)
	}
	if rec.calls != 1 {
		t.Errorf("calls = %d, want exactly 1", rec.calls)
	}
	if rec.system != prompt.DebateSummary.System {
		t.Errorf("system prompt not forwarded: %q", rec.system)
	}
	want := "Summarize the conversation and conclude with a final answer to the what is the answer:\nA: 42"
	if rec.user != want {
		t.Errorf("user prompt = %q, want %q", rec.user, want)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	s := New()
	var answers []string
	for range 3 {
		rec := &recorder{}
		got, err := s.Synthesize(context.Background(), Text("material"), problem(t), prompt.King, rec.backend("same", nil))
		if err != nil {
			t.Fatal(err)
		}
		answers = append(answers, got+"|"+rec.user)
	}
	for _, a := range answers[1:] {
		if a != answers[0] {
			t.Errorf("non-deterministic synthesis: %q vs %q", a, answers[0])
		}
	}
}

func TestSynthesize_ArbiterFailureIsFatal(t *testing.T) {
	rec := &recorder{}
	cause := errors.NewBackendError(errors.KindRateLimited, "judge", "slow down", nil)

	_, err := New().Synthesize(context.Background(), Text("x"), problem(t), prompt.King, rec.backend("", cause))
	if !errors.Is(err, errors.ErrSynthesis) {
		t.Fatalf("error = %v, want ErrSynthesis", err)
	}
	var se *errors.SynthesisError
	if !errors.As(err, &se) || se.ArbiterID != "judge" {
		t.Errorf("error = %#v", err)
	}
	if !errors.Is(err, errors.ErrBackendRateLimited) {
		t.Error("synthesis error should wrap the backend error")
	}
}

func TestSynthesize_Validation(t *testing.T) {
	rec := &recorder{}
	judge := rec.backend("x", nil)

	tests := []struct {
		name     string
		material Material
		problem  ensemble.Problem
		arbiter  backend.Backend
	}{
		{"nil material", nil, problem(t), judge},
		{"blank material", Text("  \n"), problem(t), judge},
		{"zero problem", Text("x"), ensemble.Problem{}, judge},
		{"nil arbiter", Text("x"), problem(t), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Synthesize(context.Background(), tt.material, tt.problem, prompt.King, tt.arbiter)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
	if rec.calls != 0 {
		t.Errorf("arbiter called %d times on invalid input", rec.calls)
	}
}

func TestSynthesize_Events(t *testing.T) {
	bus := event.NewBus()
	var got []string
	bus.SubscribeAll(func(e event.Event) { got = append(got, e.EventType()) })

	rec := &recorder{}
	if _, err := New(WithBus(bus)).Synthesize(context.Background(), Text("m"), problem(t), prompt.King, rec.backend("ok", nil)); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != event.TypeSynthesisStarted+","+event.TypeSynthesisFinished {
		t.Errorf("events = %v", got)
	}
}
