// Package progress is the live run view: one row per backend call, the
// current phase, debate turns and the arbiter, driven by bus events.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/tui/styles"
	"github.com/Iron-Ham/quorum/internal/util"
)

// previewLen bounds the debate turn preview.
const previewLen = 60

// EventMsg carries one bus event into the program.
type EventMsg struct {
	Event event.Event
}

// DoneMsg signals that the run returned.
type DoneMsg struct {
	Err error
}

// row is one backend call.
type row struct {
	round    string
	id       string
	name     string
	status   string
	detail   string
	duration time.Duration
}

// Model is the bubbletea model for a run.
type Model struct {
	title    string
	cancel   func()
	spinner  spinner.Model
	phase    event.Phase
	rows     []row
	index    map[string]int // round/id -> rows index
	turns    int
	rounds   int
	arbiter  string
	synthOK  *bool
	width    int
	done     bool
	quitting bool
	err      error
}

// New creates a Model. cancel is called when the user quits early.
func New(title string, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Primary
	return Model{
		title:   title,
		cancel:  cancel,
		spinner: s,
		index:   make(map[string]int),
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key presses, spinner ticks, events and completion.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) upsert(round, id, name string) *row {
	key := round + "/" + id
	if i, ok := m.index[key]; ok {
		return &m.rows[i]
	}
	m.index[key] = len(m.rows)
	m.rows = append(m.rows, row{round: round, id: id, name: name, status: "pending"})
	return &m.rows[len(m.rows)-1]
}

func (m *Model) apply(e event.Event) {
	switch e := e.(type) {
	case event.PhaseChangeEvent:
		m.phase = e.Phase
	case event.BackendStartedEvent:
		m.upsert(e.Round, e.BackendID, e.Name).status = "running"
	case event.BackendCompletedEvent:
		r := m.upsert(e.Round, e.BackendID, e.Name)
		r.status = "done"
		r.duration = e.Duration
	case event.BackendFailedEvent:
		r := m.upsert(e.Round, e.BackendID, e.Name)
		r.status = statusForKind(e.Kind)
		r.detail = e.Kind
		r.duration = e.Duration
	case event.DebateStartedEvent:
		m.rounds = e.Rounds
	case event.DebateTurnEvent:
		m.turns = e.Index + 1
		status := "done"
		if e.Failed {
			status = "failed"
		}
		r := m.upsert("debate", fmt.Sprintf("%d", e.Index), e.SpeakerName)
		r.status = status
		r.detail = "oracle " + e.Role
		if !e.Failed {
			r.detail += ": " + util.Preview(e.Text, previewLen)
		}
	case event.SynthesisStartedEvent:
		m.arbiter = e.Name
		m.synthOK = nil
	case event.SynthesisFinishedEvent:
		ok := e.Success
		m.synthOK = &ok
	case event.RunCompletedEvent:
		m.phase = event.PhaseDone
	}
}

func statusForKind(kind string) string {
	switch errors.Kind(kind) {
	case errors.KindTimeout:
		return "timeout"
	case errors.KindCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

// View renders the run.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(m.title))
	b.WriteString("\n")

	phase := string(m.phase)
	if phase == "" {
		phase = "starting"
	}
	if m.done {
		b.WriteString(styles.Subtitle.Render("Phase: " + phase))
	} else {
		b.WriteString(m.spinner.View() + " " + styles.Subtitle.Render("Phase: "+phase))
	}
	b.WriteString("\n\n")

	for _, r := range m.rows {
		label := fmt.Sprintf("%-9s %s", r.round, r.name)
		line := styles.Status(r.status, label)
		if r.detail != "" {
			line += " " + styles.Muted.Render(r.detail)
		}
		if r.duration > 0 {
			line += " " + styles.Muted.Render(r.duration.Round(time.Millisecond).String())
		}
		line = "  " + line
		if m.width > 0 {
			line = util.TruncateANSI(line, m.width)
		}
		b.WriteString(line + "\n")
	}

	if m.rounds > 0 {
		fmt.Fprintf(&b, "\n  Debate: %d of %d turns\n", m.turns, 2*m.rounds)
	}
	if m.arbiter != "" {
		status := "running"
		if m.synthOK != nil {
			status = "done"
			if !*m.synthOK {
				status = "failed"
			}
		}
		b.WriteString("\n  " + styles.Status(status, "Synthesis by "+m.arbiter) + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + styles.Error.Render("Error: "+m.err.Error()) + "\n")
	case m.quitting:
		b.WriteString("\n" + styles.Warning.Render("Canceled") + "\n")
	case !m.done:
		b.WriteString(styles.HelpBar.Render(styles.HelpKey.Render("q") + " cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

// Done reports whether the run has returned.
func (m Model) Done() bool { return m.done }
