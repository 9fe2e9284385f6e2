package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "backend.started", "debate.turn")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type identifiers.
const (
	TypeRunStarted        = "run.started"
	TypeRunCompleted      = "run.completed"
	TypePhaseChanged      = "run.phase"
	TypeBackendStarted    = "backend.started"
	TypeBackendCompleted  = "backend.completed"
	TypeBackendFailed     = "backend.failed"
	TypeDebateStarted     = "debate.started"
	TypeDebateTurn        = "debate.turn"
	TypeDebateEnded       = "debate.ended"
	TypeSynthesisStarted  = "synthesis.started"
	TypeSynthesisFinished = "synthesis.finished"
)

// -----------------------------------------------------------------------------
// Run Lifecycle Events
// -----------------------------------------------------------------------------

// Phase is a stage of a run.
type Phase string

const (
	PhaseDispatch  Phase = "dispatch"
	PhaseVote      Phase = "vote"
	PhaseDebate    Phase = "debate"
	PhaseCommittee Phase = "committee"
	PhaseSynthesis Phase = "synthesis"
	PhaseDone      Phase = "done"
)

// RunStartedEvent is emitted when a run begins.
type RunStartedEvent struct {
	baseEvent
	RunID    string
	Strategy string
	Backends int // size of the dispatch ensemble
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(runID, strategy string, backends int) RunStartedEvent {
	return RunStartedEvent{
		baseEvent: newBaseEvent(TypeRunStarted),
		RunID:     runID,
		Strategy:  strategy,
		Backends:  backends,
	}
}

// RunCompletedEvent is emitted when a run ends, successfully or not.
type RunCompletedEvent struct {
	baseEvent
	RunID    string
	Strategy string
	Success  bool
	Degraded bool
	Failed   int    // number of recorded backend failures
	Error    string // empty on success
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(runID, strategy string, degraded bool, failed int, err error) RunCompletedEvent {
	e := RunCompletedEvent{
		baseEvent: newBaseEvent(TypeRunCompleted),
		RunID:     runID,
		Strategy:  strategy,
		Success:   err == nil,
		Degraded:  degraded,
		Failed:    failed,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// PhaseChangeEvent is emitted when a run moves to a new phase.
type PhaseChangeEvent struct {
	baseEvent
	RunID string
	Phase Phase
}

// NewPhaseChangeEvent creates a PhaseChangeEvent.
func NewPhaseChangeEvent(runID string, phase Phase) PhaseChangeEvent {
	return PhaseChangeEvent{
		baseEvent: newBaseEvent(TypePhaseChanged),
		RunID:     runID,
		Phase:     phase,
	}
}

// -----------------------------------------------------------------------------
// Backend Call Events
// -----------------------------------------------------------------------------

// BackendStartedEvent is emitted when a dispatch worker starts calling a backend.
type BackendStartedEvent struct {
	baseEvent
	Round     string // "responses" or "votes"
	BackendID string
	Name      string
}

// NewBackendStartedEvent creates a BackendStartedEvent.
func NewBackendStartedEvent(round, backendID, name string) BackendStartedEvent {
	return BackendStartedEvent{
		baseEvent: newBaseEvent(TypeBackendStarted),
		Round:     round,
		BackendID: backendID,
		Name:      name,
	}
}

// BackendCompletedEvent is emitted when a backend call returns text.
type BackendCompletedEvent struct {
	baseEvent
	Round     string
	BackendID string
	Name      string
	Duration  time.Duration
}

// NewBackendCompletedEvent creates a BackendCompletedEvent.
func NewBackendCompletedEvent(round, backendID, name string, d time.Duration) BackendCompletedEvent {
	return BackendCompletedEvent{
		baseEvent: newBaseEvent(TypeBackendCompleted),
		Round:     round,
		BackendID: backendID,
		Name:      name,
		Duration:  d,
	}
}

// BackendFailedEvent is emitted when a backend call fails.
type BackendFailedEvent struct {
	baseEvent
	Round     string
	BackendID string
	Name      string
	Kind      string // failure kind, e.g. "BackendTimeout"
	Message   string
	Duration  time.Duration
}

// NewBackendFailedEvent creates a BackendFailedEvent.
func NewBackendFailedEvent(round, backendID, name, kind, message string, d time.Duration) BackendFailedEvent {
	return BackendFailedEvent{
		baseEvent: newBaseEvent(TypeBackendFailed),
		Round:     round,
		BackendID: backendID,
		Name:      name,
		Kind:      kind,
		Message:   message,
		Duration:  d,
	}
}

// -----------------------------------------------------------------------------
// Debate Events
// -----------------------------------------------------------------------------

// DebateStartedEvent is emitted when a debate session activates.
type DebateStartedEvent struct {
	baseEvent
	SessionID string
	A         string
	B         string
	Rounds    int
}

// NewDebateStartedEvent creates a DebateStartedEvent.
func NewDebateStartedEvent(sessionID, a, b string, rounds int) DebateStartedEvent {
	return DebateStartedEvent{
		baseEvent: newBaseEvent(TypeDebateStarted),
		SessionID: sessionID,
		A:         a,
		B:         b,
		Rounds:    rounds,
	}
}

// DebateTurnEvent is emitted after each debate turn is appended.
type DebateTurnEvent struct {
	baseEvent
	SessionID   string
	Index       int
	Role        string // "A" or "B"
	SpeakerID   string
	SpeakerName string
	Text        string
	Failed      bool
}

// NewDebateTurnEvent creates a DebateTurnEvent.
func NewDebateTurnEvent(sessionID string, index int, role, speakerID, speakerName, text string, failed bool) DebateTurnEvent {
	return DebateTurnEvent{
		baseEvent:   newBaseEvent(TypeDebateTurn),
		SessionID:   sessionID,
		Index:       index,
		Role:        role,
		SpeakerID:   speakerID,
		SpeakerName: speakerName,
		Text:        text,
		Failed:      failed,
	}
}

// DebateEndedEvent is emitted when a debate session leaves the active state.
type DebateEndedEvent struct {
	baseEvent
	SessionID string
	Status    string
	Turns     int
}

// NewDebateEndedEvent creates a DebateEndedEvent.
func NewDebateEndedEvent(sessionID, status string, turns int) DebateEndedEvent {
	return DebateEndedEvent{
		baseEvent: newBaseEvent(TypeDebateEnded),
		SessionID: sessionID,
		Status:    status,
		Turns:     turns,
	}
}

// -----------------------------------------------------------------------------
// Synthesis Events
// -----------------------------------------------------------------------------

// SynthesisStartedEvent is emitted before the arbiter is called.
type SynthesisStartedEvent struct {
	baseEvent
	ArbiterID string
	Name      string
}

// NewSynthesisStartedEvent creates a SynthesisStartedEvent.
func NewSynthesisStartedEvent(arbiterID, name string) SynthesisStartedEvent {
	return SynthesisStartedEvent{
		baseEvent: newBaseEvent(TypeSynthesisStarted),
		ArbiterID: arbiterID,
		Name:      name,
	}
}

// SynthesisFinishedEvent is emitted after the arbiter call returns.
type SynthesisFinishedEvent struct {
	baseEvent
	ArbiterID string
	Name      string
	Success   bool
	Duration  time.Duration
}

// NewSynthesisFinishedEvent creates a SynthesisFinishedEvent.
func NewSynthesisFinishedEvent(arbiterID, name string, success bool, d time.Duration) SynthesisFinishedEvent {
	return SynthesisFinishedEvent{
		baseEvent: newBaseEvent(TypeSynthesisFinished),
		ArbiterID: arbiterID,
		Name:      name,
		Success:   success,
		Duration:  d,
	}
}
