// Package committee runs the "king" strategy: one arbiter writes its own
// answer with the committee's responses as advice.
package committee

import (
	"context"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/prompt"
	"github.com/Iron-Ham/quorum/internal/synth"
)

// Engine asks the arbiter for a ruling.
type Engine struct {
	synthesizer *synth.Synthesizer
	arbiter     backend.Backend
	instruction prompt.Instruction
	logger      *logging.Logger
}

// New creates an Engine. A nil logger is replaced by a no-op logger.
func New(s *synth.Synthesizer, arbiter backend.Backend, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{synthesizer: s, arbiter: arbiter, instruction: prompt.King, logger: logger}
}

// Arbiter returns the ruling backend.
func (e *Engine) Arbiter() backend.Backend { return e.arbiter }

// Run formats the successful entries of pool as advice and returns the
// arbiter's answer. A pool without any success is an
// *errors.AggregationError; an arbiter failure is an *errors.SynthesisError.
func (e *Engine) Run(ctx context.Context, pool ensemble.Pool, problem ensemble.Problem) (string, error) {
	if len(pool.Successes()) == 0 {
		return "", errors.NewAggregationError("committee", pool.Errors())
	}
	e.logger.WithPhase("committee").Info("consulting arbiter",
		"advisors", len(pool.Successes()),
		"arbiter", backendID(e.arbiter))
	return e.synthesizer.Synthesize(ctx, pool, problem, e.instruction, e.arbiter)
}

func backendID(b backend.Backend) string {
	if b == nil {
		return ""
	}
	return b.ID()
}
