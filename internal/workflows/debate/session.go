package debate

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/event"
)

// Session is the state of one debate between two backends. Speakers
// alternate strictly, A first, for 2*rounds turns.
type Session struct {
	mu         sync.Mutex
	id         string
	bus        *event.Bus
	a          backend.Backend
	b          backend.Backend
	rounds     int
	opening    string
	status     SessionStatus
	transcript Transcript
	failures   []ensemble.Failure
	errs       []error
}

// NewSession creates a debate session in Pending status. opening is the
// brief every turn starts from.
func NewSession(bus *event.Bus, a, b backend.Backend, rounds int, opening string) *Session {
	return &Session{
		id:      generateDebateID(a.ID(), b.ID()),
		bus:     bus,
		a:       a,
		b:       b,
		rounds:  rounds,
		opening: opening,
		status:  StatusPending,
	}
}

// ID returns the debate session identifier.
func (s *Session) ID() string {
	return s.id
}

// Rounds returns the configured number of rounds.
func (s *Session) Rounds() int {
	return s.rounds
}

// Opening returns the opening brief.
func (s *Session) Opening() string {
	return s.opening
}

// Participants returns the backends seated as A and B.
func (s *Session) Participants() (a, b backend.Backend) {
	return s.a, s.b
}

// Status returns the current session status.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Transcript returns the session's transcript.
func (s *Session) Transcript() *Transcript {
	return &s.transcript
}

// Failures returns the failed turns as failure records.
func (s *Session) Failures() []ensemble.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ensemble.Failure, len(s.failures))
	copy(out, s.failures)
	return out
}

// Start moves the session from Pending to Active. A DebateStartedEvent is
// published to the event bus.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return fmt.Errorf("debate: cannot start session in status %s", s.status)
	}
	s.status = StatusActive
	s.bus.Publish(event.NewDebateStartedEvent(s.id, s.a.ID(), s.b.ID(), s.rounds))
	return nil
}

// Next returns the role, speaker and opponent of the next turn.
func (s *Session) Next() (Role, backend.Backend, backend.Backend) {
	if s.transcript.Len()%2 == 0 {
		return RoleA, s.a, s.b
	}
	return RoleB, s.b, s.a
}

// Record appends the next turn. The role must be the one Next reports.
// A non-nil err marks the turn as failed; text is then the placeholder
// shown in its place. Recording the last turn ends the session.
func (s *Session) Record(role Role, text string, err error) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return Turn{}, fmt.Errorf("debate: cannot record a turn in status %s", s.status)
	}
	want, speaker, _ := s.Next()
	if role != want {
		return Turn{}, fmt.Errorf("debate: turn %d belongs to %s, not %s", s.transcript.Len(), want, role)
	}

	turn := s.transcript.Append(Turn{
		Role:        role,
		SpeakerID:   speaker.ID(),
		SpeakerName: speaker.DisplayName(),
		Text:        text,
		Err:         err,
	})
	if err != nil {
		s.failures = append(s.failures, ensemble.NewFailure("debate", speaker.ID(), speaker.DisplayName(), err))
		s.errs = append(s.errs, err)
	}
	s.bus.Publish(event.NewDebateTurnEvent(s.id, turn.Index, string(role), turn.SpeakerID, turn.SpeakerName, text, err != nil))

	if s.transcript.Len() == 2*s.rounds {
		s.finish(StatusEnded)
	}
	return turn, nil
}

// Fail records a failed turn without appending it to the transcript.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, speaker, _ := s.Next()
	s.failures = append(s.failures, ensemble.NewFailure("debate", speaker.ID(), speaker.DisplayName(), err))
	s.errs = append(s.errs, err)
}

// Errors returns the errors of every failed turn in order.
func (s *Session) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

// Stop ends an unfinished session with status (Terminated or Canceled).
// Stopping a session that already reached a terminal status is a no-op.
func (s *Session) Stop(status SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return nil
	}
	if status != StatusTerminated && status != StatusCanceled {
		return fmt.Errorf("debate: cannot stop with status %s", status)
	}
	s.finish(status)
	return nil
}

// finish must be called with mu held.
func (s *Session) finish(status SessionStatus) {
	s.status = status
	s.bus.Publish(event.NewDebateEndedEvent(s.id, string(status), s.transcript.Len()))
}

// Material is the full conversation: the opening brief followed by every
// turn.
func (s *Session) Material() string {
	if s.transcript.Len() == 0 {
		return s.opening
	}
	return s.opening + "\n" + s.transcript.String()
}

// generateDebateID names a session after its participants. The random
// suffix keeps concurrent debates between the same pair apart.
func generateDebateID(a, b string) string {
	return fmt.Sprintf("debate-%s-%s-%s", a, b, uuid.NewString()[:8])
}
