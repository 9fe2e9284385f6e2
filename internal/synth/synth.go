// Package synth performs the single arbiter call that turns a tally, a
// debate transcript or a response pool into one final answer.
package synth

import (
	"context"
	"strings"
	"time"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/prompt"
)

// Material is anything that serializes itself for an arbiter.
type Material interface {
	Material() string
}

// Synthesizer makes arbiter calls. The zero value is not usable; call New.
type Synthesizer struct {
	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithBus publishes synthesis.* events on bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Synthesizer) { s.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize renders instr with the problem and material and sends it to
// arbiter in exactly one call. Any arbiter failure is returned as a
// *errors.SynthesisError; there is no fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, material Material, problem ensemble.Problem, instr prompt.Instruction, arbiter backend.Backend) (string, error) {
	if arbiter == nil {
		return "", errors.NewValidationError("no arbiter backend").WithField("arbiter")
	}
	if problem.IsZero() {
		return "", errors.NewValidationError("problem is required for synthesis").WithField("problem")
	}
	if material == nil {
		return "", errors.NewValidationError("synthesis material is empty").WithField("material")
	}
	text := material.Material()
	if strings.TrimSpace(text) == "" {
		return "", errors.NewValidationError("synthesis material is empty").WithField("material")
	}

	log := s.logger.WithPhase(string(event.PhaseSynthesis)).WithBackend(arbiter.ID())
	s.bus.Publish(event.NewSynthesisStartedEvent(arbiter.ID(), arbiter.DisplayName()))
	log.Info("synthesis started", "material_chars", len(text))

	start := time.Now()
	answer, err := arbiter.Invoke(ctx, instr.System, instr.Render(problem.Text(), text), backend.Tunables{})
	elapsed := time.Since(start)
	s.bus.Publish(event.NewSynthesisFinishedEvent(arbiter.ID(), arbiter.DisplayName(), err == nil, elapsed))
	if err != nil {
		err = backend.Normalize(arbiter.ID(), err)
		log.Error("synthesis failed",
			"kind", string(errors.KindOf(err)),
			"error", err.Error(),
			"duration_ms", elapsed.Milliseconds())
		return "", errors.NewSynthesisError(arbiter.ID(), err)
	}

	log.Info("synthesis finished", "duration_ms", elapsed.Milliseconds(), "chars", len(answer))
	return answer, nil
}

// Text is literal material.
type Text string

// Material returns the text itself.
func (t Text) Material() string { return string(t) }
