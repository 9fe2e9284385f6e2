// Package voting runs the "democracy" strategy: every backend votes for
// the best answer in a response pool and the ballots are tallied.
//
// Ballots are constrained to the candidate ids (the prompt asks for a
// trailing "VOTE: <id>" line), so the count is a plain frequency count
// with ties going to the first-registered candidate. The arbiter backend
// is consulted only when the count is ambiguous, or always in
// ModeArbiter.
package voting

import (
	"context"
	"time"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/dispatch"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/prompt"
	"github.com/Iron-Ham/quorum/internal/synth"
)

// Mode selects how votes become a Tally.
type Mode string

const (
	// ModeTally counts labelled ballots and asks the arbiter only when
	// the count is ambiguous.
	ModeTally Mode = "tally"
	// ModeArbiter always sends the raw votes to the arbiter and keeps
	// its verbatim text as the summary.
	ModeArbiter Mode = "arbiter"
)

// Engine runs votes. It is safe for concurrent use.
type Engine struct {
	dispatcher   *dispatch.Dispatcher
	synthesizer  *synth.Synthesizer
	arbiter      backend.Backend
	mode         Mode
	systemPrompt string
	logger       *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the tally mode. Unknown modes fall back to ModeTally.
func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithSystemPrompt sets the system prompt voters receive.
func WithSystemPrompt(s string) Option {
	return func(e *Engine) { e.systemPrompt = s }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine that re-dispatches ballots through d and uses
// arbiter, via s, when a count cannot stand on its own.
func New(d *dispatch.Dispatcher, s *synth.Synthesizer, arbiter backend.Backend, opts ...Option) *Engine {
	e := &Engine{
		dispatcher:   d,
		synthesizer:  s,
		arbiter:      arbiter,
		mode:         ModeTally,
		systemPrompt: prompt.DefaultSystem,
		logger:       logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.mode != ModeArbiter {
		e.mode = ModeTally
	}
	return e
}

// Mode returns the engine's tally mode.
func (e *Engine) Mode() Mode { return e.mode }

// Vote asks every backend in reg to pick the best successful entry of
// pool and tallies the ballots. Failed ballots are abstentions.
//
// Errors: no successful candidate or no successful ballot yields an
// *errors.AggregationError; an arbiter failure yields an
// *errors.SynthesisError. The votes pool is returned inside the Tally
// whenever the ballot round ran.
func (e *Engine) Vote(ctx context.Context, pool ensemble.Pool, problem ensemble.Problem, reg *backend.Registry) (*Tally, error) {
	candidates := pool.Successes()
	if len(candidates) == 0 {
		return nil, errors.NewAggregationError("vote", pool.Errors())
	}

	log := e.logger.WithPhase("vote")
	log.Info("vote started", "candidates", len(candidates), "mode", string(e.mode))
	start := time.Now()

	votes, err := e.dispatcher.Round(ctx, ensemble.KindVotes, prompt.Voting(pool, problem), e.systemPrompt, reg)
	if err != nil {
		return &Tally{Votes: votes}, err
	}

	tally := CountVotes(votes, candidates)
	log.Info("ballots counted",
		"valid", tally.Valid(),
		"abstentions", tally.Abstentions,
		"winner", tally.Winner,
		"margin", tally.Margin())

	if e.mode == ModeArbiter || tally.Ambiguous() {
		summary, err := e.arbitrate(ctx, votes, problem)
		if err != nil {
			return tally, err
		}
		tally.Summary, tally.Arbitrated = summary, true
	} else {
		tally.Summary = tally.summary()
	}

	log.Info("vote finished",
		"arbitrated", tally.Arbitrated,
		"duration_ms", time.Since(start).Milliseconds())
	return tally, nil
}

func (e *Engine) arbitrate(ctx context.Context, votes ensemble.Pool, problem ensemble.Problem) (string, error) {
	if e.arbiter == nil {
		return "", errors.NewValidationError("vote arbiter is not configured").WithField("vote.arbiter")
	}
	e.logger.WithPhase("vote").Info("asking arbiter to count votes", "arbiter", e.arbiter.ID())
	return e.synthesizer.Synthesize(ctx, votes, problem, prompt.CountVotes, e.arbiter)
}
