package progress

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
)

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModel_BackendRows(t *testing.T) {
	m := send(New("Vote", nil),
		EventMsg{event.NewPhaseChangeEvent("r1", event.PhaseDispatch)},
		EventMsg{event.NewBackendStartedEvent("responses", "openai", "ChatGPT")},
		EventMsg{event.NewBackendStartedEvent("responses", "gemini", "Gemini")},
		EventMsg{event.NewBackendCompletedEvent("responses", "openai", "ChatGPT", 1200*time.Millisecond)},
		EventMsg{event.NewBackendFailedEvent("responses", "gemini", "Gemini", string(errors.KindTimeout), "deadline", time.Second)},
	)

	if len(m.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(m.rows))
	}
	if m.rows[0].status != "done" || m.rows[1].status != "timeout" {
		t.Errorf("statuses = %q, %q", m.rows[0].status, m.rows[1].status)
	}
	view := m.View()
	for _, want := range []string{"Vote", "Phase: dispatch", "ChatGPT", "Gemini", "BackendTimeout", "1.2s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_RoundsAreSeparateRows(t *testing.T) {
	m := send(New("Vote", nil),
		EventMsg{event.NewBackendStartedEvent("responses", "openai", "ChatGPT")},
		EventMsg{event.NewBackendStartedEvent("votes", "openai", "ChatGPT")},
	)
	if len(m.rows) != 2 {
		t.Errorf("rows = %d, want one per round", len(m.rows))
	}
}

func TestModel_Debate(t *testing.T) {
	m := send(New("Debate", nil),
		EventMsg{event.NewDebateStartedEvent("d1", "anthropic", "openai", 2)},
		EventMsg{event.NewDebateTurnEvent("d1", 0, "A", "anthropic", "Claude", "x", false)},
		EventMsg{event.NewDebateTurnEvent("d1", 1, "B", "openai", "ChatGPT", "", true)},
	)
	view := m.View()
	if !strings.Contains(view, "Debate: 2 of 4 turns") {
		t.Errorf("view missing turn count:\n%s", view)
	}
	if m.rows[1].status != "failed" {
		t.Errorf("failed turn status = %q", m.rows[1].status)
	}
}

func TestModel_Synthesis(t *testing.T) {
	m := send(New("Committee", nil), EventMsg{event.NewSynthesisStartedEvent("openai", "ChatGPT")})
	if !strings.Contains(m.View(), "Synthesis by ChatGPT") {
		t.Error("view missing arbiter")
	}
	m = send(m, EventMsg{event.NewSynthesisFinishedEvent("openai", "ChatGPT", false, time.Second)})
	if m.synthOK == nil || *m.synthOK {
		t.Error("synthesis should be marked failed")
	}
}

func TestModel_Done(t *testing.T) {
	m := New("Vote", nil)
	next, cmd := m.Update(DoneMsg{Err: errors.New("boom")})
	m = next.(Model)
	if !m.Done() || cmd == nil {
		t.Fatal("DoneMsg should finish and quit")
	}
	if !strings.Contains(m.View(), "Error: boom") {
		t.Errorf("view = %s", m.View())
	}
}

func TestModel_QuitCancels(t *testing.T) {
	var canceled atomic.Bool
	m := New("Vote", func() { canceled.Store(true) })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !canceled.Load() || cmd == nil {
		t.Error("q should cancel the run and quit")
	}
}

func TestRun(t *testing.T) {
	bus := event.NewBus()
	err := Run(context.Background(), bus, "Vote", func(ctx context.Context) error {
		bus.Publish(event.NewPhaseChangeEvent("r1", event.PhaseDispatch))
		return errors.New("work failed")
	}, tea.WithInput(nil), tea.WithOutput(&strings.Builder{}), tea.WithoutSignalHandler(), tea.WithoutRenderer())

	if err == nil || err.Error() != "work failed" {
		t.Errorf("Run() = %v, want work error", err)
	}
	if bus.SubscriptionCount() != 0 {
		t.Error("Run should unsubscribe from the bus")
	}
}

func TestModel_WidthAndPreview(t *testing.T) {
	long := strings.Repeat("word ", 40)
	m := send(New("Debate", nil),
		tea.WindowSizeMsg{Width: 40, Height: 20},
		EventMsg{event.NewDebateTurnEvent("d1", 0, "A", "anthropic", "Claude", "First line\nsecond line", false)},
		EventMsg{event.NewBackendStartedEvent("responses", "x", "Backend "+long)},
	)
	if !strings.Contains(m.rows[0].detail, "oracle A: First line second line") {
		t.Errorf("turn detail = %q", m.rows[0].detail)
	}
	for _, line := range strings.Split(m.View(), "\n") {
		if strings.Contains(line, "Backend word") && lipgloss.Width(line) > 40 {
			t.Errorf("row not truncated to width: %q", line)
		}
	}
}
