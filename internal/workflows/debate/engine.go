package debate

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/prompt"
)

// DefaultRounds is the number of A/B exchanges when none is configured.
const DefaultRounds = 3

// Engine runs debates between two fixed backends. Each Run owns its own
// Session, so one Engine may run several debates concurrently.
type Engine struct {
	a      backend.Backend
	b      backend.Backend
	rounds int
	policy FailurePolicy
	bus    *event.Bus
	logger *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRounds sets the number of rounds (2 turns each).
func WithRounds(n int) Option {
	return func(e *Engine) { e.rounds = n }
}

// WithPolicy sets the turn failure policy.
func WithPolicy(p FailurePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithBus publishes debate.* events on bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine seating a as A (who opens) and b as B.
func New(a, b backend.Backend, opts ...Option) (*Engine, error) {
	if a == nil || b == nil {
		return nil, errors.NewValidationError("debate needs two participants").WithField("debate")
	}
	if a.ID() == b.ID() {
		return nil, errors.NewValidationError("debate participants must differ").
			WithField("debate.b").WithValue(b.ID())
	}
	e := &Engine{
		a:      a,
		b:      b,
		rounds: DefaultRounds,
		policy: PolicyPlaceholder,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rounds < 1 {
		return nil, errors.NewValidationError("debate rounds must be at least 1").
			WithField("debate.rounds").WithValue(e.rounds)
	}
	switch e.policy {
	case PolicyPlaceholder, PolicyTerminate:
	default:
		return nil, errors.NewValidationError("unknown turn failure policy").
			WithField("debate.on_turn_failure").WithValue(string(e.policy))
	}
	return e, nil
}

// Rounds returns the configured number of rounds.
func (e *Engine) Rounds() int { return e.rounds }

// Policy returns the turn failure policy.
func (e *Engine) Policy() FailurePolicy { return e.policy }

// Run debates problem with the advisors' answers as context. Turns are
// strictly sequential; each speaker sees the opening brief and the whole
// transcript so far.
//
// The session is always returned, holding whatever transcript exists.
// Errors: ErrCanceled (wrapped) when ctx ends mid-debate, and an
// *errors.AggregationError when no turn succeeded.
func (e *Engine) Run(ctx context.Context, advisors ensemble.Pool, problem ensemble.Problem) (*Session, error) {
	opening := prompt.DebateOpening(advisors, problem, e.a.DisplayName(), e.b.DisplayName())
	sess := NewSession(e.bus, e.a, e.b, e.rounds, opening)
	if err := sess.Start(); err != nil {
		return sess, err
	}

	log := e.logger.WithPhase(string(event.PhaseDebate)).With("debate_id", sess.ID())
	log.Info("debate started", "a", e.a.ID(), "b", e.b.ID(), "rounds", e.rounds, "policy", string(e.policy))

	for !sess.Status().Terminal() {
		if err := ctx.Err(); err != nil {
			return sess, e.cancel(sess, err, log)
		}

		role, speaker, other := sess.Next()
		index := sess.Transcript().Len()
		system := prompt.DebateRole(speaker.DisplayName(), other.DisplayName(), problem)

		start := time.Now()
		text, err := speaker.Invoke(ctx, system, sess.Material(), backend.Tunables{})
		elapsed := time.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				return sess, e.cancel(sess, ctx.Err(), log)
			}
			err = backend.Normalize(speaker.ID(), err)
			kind := errors.KindOf(err)
			log.Warn("debate turn failed",
				"turn", index,
				"role", string(role),
				"backend", speaker.ID(),
				"kind", string(kind),
				"duration_ms", elapsed.Milliseconds())

			if e.policy == PolicyTerminate {
				sess.Fail(err)
				_ = sess.Stop(StatusTerminated)
				log.Warn("debate terminated", "turns", sess.Transcript().Len())
				break
			}
			text = placeholder(speaker.DisplayName(), kind)
		} else {
			log.Info("debate turn",
				"turn", index,
				"role", string(role),
				"backend", speaker.ID(),
				"duration_ms", elapsed.Milliseconds())
		}

		if _, recErr := sess.Record(role, text, err); recErr != nil {
			return sess, recErr
		}
	}

	if sess.Transcript().Successes() == 0 {
		return sess, errors.NewAggregationError("debate", sess.Errors())
	}

	log.Info("debate finished", "status", string(sess.Status()), "turns", sess.Transcript().Len())
	return sess, nil
}

func (e *Engine) cancel(sess *Session, cause error, log *logging.Logger) error {
	_ = sess.Stop(StatusCanceled)
	log.Warn("debate canceled", "turns", sess.Transcript().Len())
	return fmt.Errorf("debate %s: %w", sess.ID(), errors.Join(errors.ErrCanceled, cause))
}

// placeholder is the text recorded for a failed turn.
func placeholder(name string, kind errors.Kind) string {
	return fmt.Sprintf("[%s could not respond: %s]", name, kind)
}
