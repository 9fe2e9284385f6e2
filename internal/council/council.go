// Package council runs one problem end to end: dispatch to the ensemble,
// aggregate with the chosen strategy, then synthesize the final answer.
package council

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/dispatch"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/prompt"
	"github.com/Iron-Ham/quorum/internal/synth"
	"github.com/Iron-Ham/quorum/internal/workflows/committee"
	"github.com/Iron-Ham/quorum/internal/workflows/debate"
	"github.com/Iron-Ham/quorum/internal/workflows/voting"
)

// Strategy names an aggregation strategy.
type Strategy string

const (
	StrategyVote      Strategy = "vote"
	StrategyDebate    Strategy = "debate"
	StrategyCommittee Strategy = "committee"
)

// Strategies lists the supported strategies.
func Strategies() []Strategy {
	return []Strategy{StrategyVote, StrategyDebate, StrategyCommittee}
}

// Result is everything one run produced. Fields for strategies that did
// not run stay zero.
type Result struct {
	RunID     string
	Strategy  Strategy
	Problem   ensemble.Problem
	Responses ensemble.Pool
	Tally     *voting.Tally
	Debate    *debate.Session
	Answer    string
	Degraded  bool
	Failures  []ensemble.Failure
	Started   time.Time
	Duration  time.Duration
}

// Transcript returns the debate turns, or nil for other strategies.
func (r *Result) Transcript() []debate.Turn {
	if r.Debate == nil {
		return nil
	}
	return r.Debate.Transcript().Turns()
}

func (r *Result) fail(records ...ensemble.Failure) {
	r.Failures = append(r.Failures, records...)
}

// Runner wires the engines for every strategy. It is safe for
// concurrent use; each Run has its own state.
type Runner struct {
	ensemble     *backend.Registry
	dispatcher   *dispatch.Dispatcher
	synthesizer  *synth.Synthesizer
	voting       *voting.Engine
	voteArbiter  backend.Backend
	debate       *debate.Engine
	committee    *committee.Engine
	synthArbiter backend.Backend
	systemPrompt string
	bus          *event.Bus
	logger       *logging.Logger
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	ensemble *backend.Registry
	bus      *event.Bus
	logger   *logging.Logger
}

// WithEnsemble overrides the dispatch set (e.g. after --only filtering).
// Arbiters and debaters are still resolved from the full registry.
func WithEnsemble(reg *backend.Registry) Option {
	return func(o *options) { o.ensemble = reg }
}

// WithBus publishes run, backend, debate and synthesis events on bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds a Runner from cfg over the backends in reg.
func New(cfg *config.Config, reg *backend.Registry, opts ...Option) (*Runner, error) {
	if cfg == nil || reg == nil {
		return nil, errors.NewValidationError("config and registry are required")
	}
	o := options{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	if o.ensemble == nil {
		o.ensemble = reg.Ensemble()
	}

	voteArbiter, err := reg.Lookup("vote.arbiter", cfg.Vote.Arbiter)
	if err != nil {
		return nil, err
	}
	synthArbiter, err := reg.Lookup("synthesis.arbiter", cfg.Synthesis.Arbiter)
	if err != nil {
		return nil, err
	}
	king, err := reg.Lookup("committee.arbiter", cfg.Committee.Arbiter)
	if err != nil {
		return nil, err
	}
	a, err := reg.Lookup("debate.a", cfg.Debate.A)
	if err != nil {
		return nil, err
	}
	b, err := reg.Lookup("debate.b", cfg.Debate.B)
	if err != nil {
		return nil, err
	}

	d := dispatch.New(
		dispatch.WithMaxParallel(cfg.Dispatch.MaxParallel),
		dispatch.WithCallTimeout(cfg.Dispatch.CallTimeout()),
		dispatch.WithBus(o.bus),
		dispatch.WithLogger(o.logger),
	)
	s := synth.New(synth.WithBus(o.bus), synth.WithLogger(o.logger))

	debateEngine, err := debate.New(a, b,
		debate.WithRounds(cfg.Debate.Rounds),
		debate.WithPolicy(debate.FailurePolicy(cfg.Debate.OnTurnFailure)),
		debate.WithBus(o.bus),
		debate.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}

	systemPrompt := cfg.Dispatch.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = prompt.DefaultSystem
	}

	return &Runner{
		ensemble:    o.ensemble,
		dispatcher:  d,
		synthesizer: s,
		voting: voting.New(d, s, voteArbiter,
			voting.WithMode(voting.Mode(cfg.Vote.Mode)),
			voting.WithSystemPrompt(systemPrompt),
			voting.WithLogger(o.logger)),
		voteArbiter:  voteArbiter,
		debate:       debateEngine,
		committee:    committee.New(s, king, o.logger),
		synthArbiter: synthArbiter,
		systemPrompt: systemPrompt,
		bus:          o.bus,
		logger:       o.logger,
	}, nil
}

// Ensemble returns the dispatch set.
func (r *Runner) Ensemble() *backend.Registry { return r.ensemble }

// Run answers problem with strategy. The Result is returned even on
// error and holds whatever the run produced before failing; its
// Failures name every backend that failed and why.
func (r *Runner) Run(ctx context.Context, strategy Strategy, problem ensemble.Problem) (*Result, error) {
	res := &Result{
		RunID:    uuid.NewString(),
		Strategy: strategy,
		Problem:  problem,
		Started:  time.Now(),
	}
	log := r.logger.WithRun(res.RunID).With("strategy", string(strategy))
	r.bus.Publish(event.NewRunStartedEvent(res.RunID, string(strategy), r.ensemble.Len()))
	log.Info("run started", "backends", r.ensemble.Len())

	err := r.run(ctx, res, log)

	res.Duration = time.Since(res.Started)
	res.Degraded = len(res.Failures) > 0
	r.bus.Publish(event.NewRunCompletedEvent(res.RunID, string(strategy), res.Degraded, len(res.Failures), err))
	if err != nil {
		log.Error("run failed", "error", err.Error(), "failures", len(res.Failures))
		return res, err
	}
	log.Info("run finished",
		"degraded", res.Degraded,
		"failures", len(res.Failures),
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (r *Runner) run(ctx context.Context, res *Result, log *logging.Logger) error {
	switch res.Strategy {
	case StrategyVote, StrategyDebate, StrategyCommittee:
	default:
		return errors.NewValidationError("unknown strategy").WithField("strategy").WithValue(string(res.Strategy))
	}
	if res.Problem.IsZero() {
		return errors.NewValidationError("problem text cannot be empty").WithField("problem")
	}

	r.phase(res, event.PhaseDispatch)
	pool, err := r.dispatcher.Dispatch(ctx, res.Problem.Text(), r.systemPrompt, r.ensemble)
	res.Responses = pool
	res.fail(pool.FailureRecords("dispatch")...)
	if err != nil {
		return err
	}

	switch res.Strategy {
	case StrategyVote:
		res.Answer, err = r.vote(ctx, res)
	case StrategyDebate:
		res.Answer, err = r.runDebate(ctx, res)
	case StrategyCommittee:
		r.phase(res, event.PhaseCommittee)
		res.Answer, err = r.committee.Run(ctx, pool, res.Problem)
	}
	if err != nil {
		var se *errors.SynthesisError
		if errors.As(err, &se) {
			res.fail(ensemble.NewFailure("synthesis", se.ArbiterID, se.ArbiterID, errors.Unwrap(se)))
		}
		return err
	}

	r.phase(res, event.PhaseDone)
	return nil
}

func (r *Runner) vote(ctx context.Context, res *Result) (string, error) {
	r.phase(res, event.PhaseVote)
	tally, err := r.voting.Vote(ctx, res.Responses, res.Problem, r.ensemble)
	if tally != nil {
		res.Tally = tally
		res.fail(tally.Votes.FailureRecords("vote")...)
	}
	if err != nil {
		return "", err
	}
	if r.voting.Mode() == voting.ModeArbiter {
		return tally.Summary, nil
	}
	r.phase(res, event.PhaseSynthesis)
	return r.synthesizer.Synthesize(ctx, tally, res.Problem, prompt.AnnounceWinner, r.voteArbiter)
}

func (r *Runner) runDebate(ctx context.Context, res *Result) (string, error) {
	r.phase(res, event.PhaseDebate)
	sess, err := r.debate.Run(ctx, res.Responses, res.Problem)
	if sess != nil {
		res.Debate = sess
		res.fail(sess.Failures()...)
	}
	if err != nil {
		return "", err
	}
	r.phase(res, event.PhaseSynthesis)
	return r.synthesizer.Synthesize(ctx, sess, res.Problem, prompt.DebateSummary, r.synthArbiter)
}

func (r *Runner) phase(res *Result, p event.Phase) {
	r.bus.Publish(event.NewPhaseChangeEvent(res.RunID, p))
}
