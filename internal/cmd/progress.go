package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/tui/styles"
	"github.com/Iron-Ham/quorum/internal/util"
)

const turnPreviewLen = 72

// lineProgress prints one coloured line per backend call, debate turn and
// synthesis. Handlers run on the publishing goroutine, so writes are
// serialized.
type lineProgress struct {
	mu sync.Mutex
	w  io.Writer
}

// attachLineProgress subscribes a lineProgress to bus and returns the
// function that detaches it.
func attachLineProgress(bus *event.Bus, w io.Writer) func() {
	lp := &lineProgress{w: w}
	id := bus.SubscribeAll(lp.handle)
	return func() { bus.Unsubscribe(id) }
}

func (lp *lineProgress) handle(e event.Event) {
	line := progressLine(e)
	if line == "" {
		return
	}
	lp.mu.Lock()
	defer lp.mu.Unlock()
	fmt.Fprintln(lp.w, line)
}

func progressLine(e event.Event) string {
	switch e := e.(type) {
	case event.BackendStartedEvent:
		if e.Round == ensemble.KindVotes {
			return styles.Muted.Render(fmt.Sprintf("Collecting vote from %s", e.Name))
		}
		return styles.Muted.Render(fmt.Sprintf("Consulting %s", e.Name))
	case event.BackendCompletedEvent:
		return styles.Status("done", fmt.Sprintf("%s answered in %s", e.Name, e.Duration.Round(time.Millisecond)))
	case event.BackendFailedEvent:
		return styles.Status("failed", fmt.Sprintf("%s failed: %s", e.Name, e.Kind))
	case event.DebateStartedEvent:
		return styles.Primary.Render(fmt.Sprintf("Debate between %s and %s, %d rounds", e.A, e.B, e.Rounds))
	case event.DebateTurnEvent:
		if e.Failed {
			return styles.Status("failed", fmt.Sprintf("Oracle %s (%s) could not respond", e.Role, e.SpeakerName))
		}
		return styles.Status("done", fmt.Sprintf("Oracle %s (%s): %s", e.Role, e.SpeakerName, util.Preview(e.Text, turnPreviewLen)))
	case event.DebateEndedEvent:
		return styles.Muted.Render(fmt.Sprintf("Debate %s after %d turns", e.Status, e.Turns))
	case event.SynthesisStartedEvent:
		return styles.Muted.Render(fmt.Sprintf("Synthesizing the answer with %s", e.Name))
	case event.SynthesisFinishedEvent:
		if !e.Success {
			return styles.Status("failed", fmt.Sprintf("%s could not synthesize the answer", e.Name))
		}
	case event.RunCompletedEvent:
		if e.Degraded {
			return styles.Banner.Render(fmt.Sprintf("Degraded result: %d backend failure(s)", e.Failed))
		}
	}
	return ""
}
