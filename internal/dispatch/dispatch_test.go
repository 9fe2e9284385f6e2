package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/quorum/internal/backend"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
)

func echo(id string, delay time.Duration) backend.Backend {
	return backend.NewFunc(id, "Name "+id, func(ctx context.Context, _, user string, _ backend.Tunables) (string, error) {
		select {
		case <-time.After(delay):
			return id + ": " + user, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

func failing(id string, kind errors.Kind) backend.Backend {
	return backend.NewFunc(id, "", func(context.Context, string, string, backend.Tunables) (string, error) {
		return "", errors.NewBackendError(kind, id, "nope", nil)
	})
}

func registry(t *testing.T, bs ...backend.Backend) *backend.Registry {
	t.Helper()
	reg, err := backend.NewRegistry(bs...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestDispatch_OrderMatchesRegistry(t *testing.T) {
	// Later backends finish first.
	reg := registry(t,
		echo("a", 30*time.Millisecond),
		echo("b", 15*time.Millisecond),
		echo("c", 0),
	)

	pool, err := New().Dispatch(context.Background(), "hi", "", reg)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if pool.Kind != ensemble.KindResponses {
		t.Errorf("Kind = %q", pool.Kind)
	}
	if pool.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", pool.Len())
	}
	for i, id := range []string{"a", "b", "c"} {
		e := pool.Entries[i]
		if e.BackendID != id {
			t.Errorf("entry %d id = %q, want %q", i, e.BackendID, id)
		}
		if e.Text != id+": hi" {
			t.Errorf("entry %d text = %q", i, e.Text)
		}
	}
	if pool.Degraded() {
		t.Error("healthy round should not be degraded")
	}
}

func TestDispatch_PartialFailure(t *testing.T) {
	reg := registry(t,
		echo("a", 0),
		failing("b", errors.KindRateLimited),
		echo("c", 0),
	)

	pool, err := New().Dispatch(context.Background(), "q", "", reg)
	if err != nil {
		t.Fatalf("Dispatch should tolerate one failure: %v", err)
	}
	if !pool.Degraded() {
		t.Error("pool should be degraded")
	}
	e, _ := pool.Get("b")
	if errors.KindOf(e.Err) != errors.KindRateLimited {
		t.Errorf("kind = %v", errors.KindOf(e.Err))
	}
	if got := pool.Format(); got != "Name a's advice: a: q\n\nName c's advice: c: q" {
		t.Errorf("Format() = %q", got)
	}
}

func TestDispatch_AllFail(t *testing.T) {
	reg := registry(t,
		failing("a", errors.KindAuth),
		failing("b", errors.KindUnavailable),
	)

	pool, err := New().Dispatch(context.Background(), "q", "", reg)
	if !errors.Is(err, errors.ErrAggregation) {
		t.Fatalf("error = %v, want ErrAggregation", err)
	}
	var agg *errors.AggregationError
	if !errors.As(err, &agg) {
		t.Fatalf("error is not an AggregationError: %T", err)
	}
	if agg.Stage != "dispatch" {
		t.Errorf("Stage = %q", agg.Stage)
	}
	if pool.Len() != 2 {
		t.Errorf("pool should still carry both slots, got %d", pool.Len())
	}
}

func TestRound_VotesStage(t *testing.T) {
	reg := registry(t, failing("a", errors.KindTimeout))

	pool, err := New().Round(context.Background(), ensemble.KindVotes, "ballot", "", reg)
	if pool.Kind != ensemble.KindVotes {
		t.Errorf("Kind = %q", pool.Kind)
	}
	var agg *errors.AggregationError
	if !errors.As(err, &agg) || agg.Stage != "vote" {
		t.Errorf("error = %v, want vote-stage aggregation error", err)
	}
}

func TestDispatch_EmptyRegistry(t *testing.T) {
	_, err := New().Dispatch(context.Background(), "q", "", nil)
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestDispatch_CallTimeout(t *testing.T) {
	reg := registry(t, echo("fast", 0), echo("slow", time.Second))

	d := New(WithCallTimeout(20 * time.Millisecond))
	start := time.Now()
	pool, err := d.Dispatch(context.Background(), "q", "", reg)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("round took %v, timeout not applied", elapsed)
	}
	e, _ := pool.Get("slow")
	if errors.KindOf(e.Err) != errors.KindTimeout {
		t.Errorf("slow kind = %v, want timeout", errors.KindOf(e.Err))
	}
}

func TestDispatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := registry(t, echo("a", time.Second), echo("b", time.Second))

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	pool, err := New().Dispatch(ctx, "q", "", reg)
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("error = %v, want ErrCanceled", err)
	}
	if pool.Len() != 2 {
		t.Errorf("partial pool should keep every slot, got %d", pool.Len())
	}
	for _, e := range pool.Entries {
		if errors.KindOf(e.Err) != errors.KindCanceled {
			t.Errorf("%s kind = %v, want canceled", e.BackendID, errors.KindOf(e.Err))
		}
	}
}

func TestDispatch_MaxParallel(t *testing.T) {
	var running, peak atomic.Int32
	var bs []backend.Backend
	for i := range 6 {
		id := fmt.Sprintf("b%d", i)
		bs = append(bs, backend.NewFunc(id, "", func(context.Context, string, string, backend.Tunables) (string, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return "ok", nil
		}))
	}

	_, err := New(WithMaxParallel(2)).Dispatch(context.Background(), "q", "", registry(t, bs...))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestDispatch_PanicIsRecorded(t *testing.T) {
	reg := registry(t,
		echo("a", 0),
		backend.NewFunc("boom", "", func(context.Context, string, string, backend.Tunables) (string, error) {
			panic("kaboom")
		}),
	)

	pool, err := New().Dispatch(context.Background(), "q", "", reg)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	e, _ := pool.Get("boom")
	if e.OK() {
		t.Error("panicking backend should be a failed slot")
	}
}

func TestDispatch_PublishesEvents(t *testing.T) {
	bus := event.NewBus()
	var mu sync.Mutex
	counts := map[string]int{}
	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		counts[e.EventType()]++
		mu.Unlock()
	})

	reg := registry(t, echo("a", 0), failing("b", errors.KindAuth))
	if _, err := New(WithBus(bus)).Dispatch(context.Background(), "q", "", reg); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if counts[event.TypeBackendStarted] != 2 {
		t.Errorf("started = %d, want 2", counts[event.TypeBackendStarted])
	}
	if counts[event.TypeBackendCompleted] != 1 {
		t.Errorf("completed = %d, want 1", counts[event.TypeBackendCompleted])
	}
	if counts[event.TypeBackendFailed] != 1 {
		t.Errorf("failed = %d, want 1", counts[event.TypeBackendFailed])
	}
}

// stubborn never looks at its context.
func stubborn(id string, delay time.Duration) backend.Backend {
	return backend.NewFunc(id, "Name "+id, func(context.Context, string, string, backend.Tunables) (string, error) {
		time.Sleep(delay)
		return "late", nil
	})
}

func TestDispatch_TimeoutIgnoredContext(t *testing.T) {
	reg := registry(t, echo("fast", 0), stubborn("stuck", 2*time.Second))

	d := New(WithCallTimeout(50 * time.Millisecond))
	start := time.Now()
	pool, err := d.Dispatch(context.Background(), "q", "", reg)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("round took %v, a backend ignoring its context blocked it", elapsed)
	}
	e, _ := pool.Get("stuck")
	if e.OK() || e.Text != "" {
		t.Errorf("stuck slot = %+v, want a failure", e)
	}
	if errors.KindOf(e.Err) != errors.KindTimeout {
		t.Errorf("stuck kind = %v, want timeout", errors.KindOf(e.Err))
	}
	if f, _ := pool.Get("fast"); !f.OK() {
		t.Errorf("fast slot = %+v", f)
	}
}

func TestDispatch_CanceledIgnoredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := registry(t, stubborn("stuck", 2*time.Second))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	pool, err := New().Dispatch(ctx, "q", "", reg)
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("error = %v, want ErrCanceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
	e, _ := pool.Get("stuck")
	if errors.KindOf(e.Err) != errors.KindCanceled {
		t.Errorf("stuck kind = %v, want canceled", errors.KindOf(e.Err))
	}
}
