// Package dispatch fans one prompt out to every backend of a registry and
// gathers the results into an ordered pool.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
)

// Dispatcher runs bounded parallel rounds of backend calls.
// It holds no per-round state and may be shared across goroutines.
type Dispatcher struct {
	maxParallel int
	callTimeout time.Duration
	bus         *event.Bus
	logger      *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxParallel caps concurrent calls. Zero or less means one worker
// per backend.
func WithMaxParallel(n int) Option {
	return func(d *Dispatcher) { d.maxParallel = n }
}

// WithCallTimeout bounds every backend call. Zero disables the bound.
func WithCallTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.callTimeout = t }
}

// WithBus publishes backend.* events on bus.
func WithBus(bus *event.Bus) Option {
	return func(d *Dispatcher) { d.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends problemText to every backend in reg and returns the
// responses pool. See Round.
func (d *Dispatcher) Dispatch(ctx context.Context, problemText, systemPrompt string, reg *backend.Registry) (ensemble.Pool, error) {
	return d.Round(ctx, ensemble.KindResponses, problemText, systemPrompt, reg)
}

// Round sends userPrompt to every backend in reg. The returned pool holds
// exactly one entry per backend in registry order, whatever order the
// calls finished in. A failed call is recorded in its slot and never
// aborts the round.
//
// Errors:
//   - empty registry: *errors.ValidationError
//   - every slot failed: *errors.AggregationError, with the pool
//   - ctx canceled: errors.ErrCanceled (wrapped), with the partial pool
func (d *Dispatcher) Round(ctx context.Context, kind, userPrompt, systemPrompt string, reg *backend.Registry) (ensemble.Pool, error) {
	result := ensemble.Pool{Kind: kind}
	if reg == nil || reg.Len() == 0 {
		return result, errors.NewValidationError("no backends to dispatch to").WithField("backends")
	}

	backends := reg.Backends()
	workers := d.maxParallel
	if workers <= 0 || workers > len(backends) {
		workers = len(backends)
	}

	log := d.logger.WithPhase(stage(kind))
	log.Info("dispatch round started", "kind", kind, "backends", len(backends), "workers", workers)
	start := time.Now()

	// Each worker writes only its own index.
	entries := make([]ensemble.Entry, len(backends))
	p := pool.New().WithMaxGoroutines(workers)
	for i, b := range backends {
		p.Go(func() {
			entries[i] = d.call(ctx, kind, b, systemPrompt, userPrompt, log)
		})
	}
	p.Wait()

	result.Entries = entries
	failed := len(result.Failures())
	log.Info("dispatch round finished",
		"kind", kind,
		"succeeded", len(entries)-failed,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds())

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("dispatch %s: %w", kind, errors.Join(errors.ErrCanceled, err))
	}
	if failed == len(entries) {
		return result, errors.NewAggregationError(stage(kind), result.Errors())
	}
	return result, nil
}

// call performs one backend invocation and never panics.
func (d *Dispatcher) call(ctx context.Context, kind string, b backend.Backend, system, user string, log *logging.Logger) (entry ensemble.Entry) {
	entry = ensemble.Entry{BackendID: b.ID(), Name: b.DisplayName()}
	log = log.WithBackend(b.ID())
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			entry.Text = ""
			entry.Err = errors.NewBackendError(errors.KindUnavailable, b.ID(), fmt.Sprintf("backend panicked: %v", r), nil).
				WithRetryable(false)
			entry.Duration = time.Since(start)
			d.fail(kind, entry, log)
		}
	}()

	if err := ctx.Err(); err != nil {
		entry.Err = backend.Normalize(b.ID(), err)
		d.fail(kind, entry, log)
		return entry
	}

	d.bus.Publish(event.NewBackendStartedEvent(kind, entry.BackendID, entry.Name))
	log.Debug("calling backend")

	callCtx := ctx
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	text, err := invoke(callCtx, ctx, b, system, user)
	entry.Duration = time.Since(start)
	if err != nil {
		entry.Err = backend.Normalize(b.ID(), err)
		d.fail(kind, entry, log)
		return entry
	}

	entry.Text = text
	d.bus.Publish(event.NewBackendCompletedEvent(kind, entry.BackendID, entry.Name, entry.Duration))
	log.Info("backend responded", "duration_ms", entry.Duration.Milliseconds(), "chars", len(text))
	return entry
}

type reply struct {
	text string
	err  error
}

// invoke runs b.Invoke on its own goroutine and stops waiting when callCtx
// ends, so a backend that ignores its context cannot hold up the round.
// The abandoned call finishes into the buffered channel.
func invoke(callCtx, runCtx context.Context, b backend.Backend, system, user string) (string, error) {
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: errors.NewBackendError(errors.KindUnavailable, b.ID(), fmt.Sprintf("backend panicked: %v", r), nil).
					WithRetryable(false)}
			}
		}()
		text, err := b.Invoke(callCtx, system, user, backend.Tunables{})
		done <- reply{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-callCtx.Done():
		if err := runCtx.Err(); err != nil {
			return "", errors.NewBackendError(errors.KindCanceled, b.ID(), "call canceled", err)
		}
		return "", errors.NewBackendError(errors.KindTimeout, b.ID(), "call timed out", callCtx.Err())
	}
}

func (d *Dispatcher) fail(kind string, entry ensemble.Entry, log *logging.Logger) {
	k := errors.KindOf(entry.Err)
	d.bus.Publish(event.NewBackendFailedEvent(kind, entry.BackendID, entry.Name, string(k), entry.Err.Error(), entry.Duration))
	log.Warn("backend failed",
		"kind", string(k),
		"error", entry.Err.Error(),
		"duration_ms", entry.Duration.Milliseconds())
}

// stage names the run stage a round belongs to.
func stage(kind string) string {
	if kind == ensemble.KindVotes {
		return "vote"
	}
	return "dispatch"
}
