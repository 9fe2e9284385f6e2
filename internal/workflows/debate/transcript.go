package debate

import (
	"fmt"
	"strings"
	"sync"
)

// Turn is one entry of a transcript.
type Turn struct {
	Index       int    `json:"index"`
	Role        Role   `json:"role"`
	SpeakerID   string `json:"speaker_id"`
	SpeakerName string `json:"speaker_name"`
	Text        string `json:"text"`
	Err         error  `json:"-"`
}

// OK reports whether the speaker actually answered.
func (t Turn) OK() bool { return t.Err == nil }

// Line is the turn as it appears in the conversation.
func (t Turn) Line() string {
	return fmt.Sprintf("Oracle %s said: %s", t.SpeakerName, t.Text)
}

// Transcript is an append-only record of turns. It is safe for
// concurrent reads while the debate loop appends.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

// Append adds t at the end and assigns its index.
func (tr *Transcript) Append(t Turn) Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t.Index = len(tr.turns)
	tr.turns = append(tr.turns, t)
	return t
}

// Turns returns a copy of the turns in order.
func (tr *Transcript) Turns() []Turn {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	out := make([]Turn, len(tr.turns))
	copy(out, tr.turns)
	return out
}

// Len returns the number of turns.
func (tr *Transcript) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.turns)
}

// Successes returns the number of turns that were not failures.
func (tr *Transcript) Successes() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	n := 0
	for _, t := range tr.turns {
		if t.OK() {
			n++
		}
	}
	return n
}

// String joins the turn lines with newlines, in turn order.
func (tr *Transcript) String() string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	lines := make([]string, len(tr.turns))
	for i, t := range tr.turns {
		lines[i] = t.Line()
	}
	return strings.Join(lines, "\n")
}

// Material implements synth.Material.
func (tr *Transcript) Material() string { return tr.String() }
