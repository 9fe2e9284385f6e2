// Package ensemble holds the data shared by every aggregation strategy:
// the problem, the pool of per-backend results and recorded failures.
package ensemble

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
)

// Problem is the immutable question posed to every backend.
type Problem struct {
	text string
}

// NewProblem validates and wraps text. Surrounding whitespace is removed;
// an empty problem is rejected.
func NewProblem(text string) (Problem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Problem{}, errors.NewValidationError("problem text cannot be empty").WithField("problem")
	}
	return Problem{text: text}, nil
}

// Text returns the problem text.
func (p Problem) Text() string { return p.text }

// IsZero reports whether p was never initialized.
func (p Problem) IsZero() bool { return p.text == "" }

// Pool kinds.
const (
	KindResponses = "responses"
	KindVotes     = "votes"
)

// Entry is one backend's slot in a pool: either text or an error.
type Entry struct {
	BackendID string
	Name      string
	Text      string
	Err       error
	Duration  time.Duration
}

// OK reports whether the slot holds a successful response.
func (e Entry) OK() bool { return e.Err == nil }

// Pool is the ordered result of one dispatch round, one entry per
// backend in registry order.
type Pool struct {
	Kind    string
	Entries []Entry
}

// Len returns the number of entries.
func (p Pool) Len() int { return len(p.Entries) }

// Get returns the entry for a backend id.
func (p Pool) Get(backendID string) (Entry, bool) {
	for _, e := range p.Entries {
		if e.BackendID == backendID {
			return e, true
		}
	}
	return Entry{}, false
}

// Successes returns the successful entries in order.
func (p Pool) Successes() []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// Failures returns the failed entries in order.
func (p Pool) Failures() []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// Degraded reports whether at least one slot failed.
func (p Pool) Degraded() bool {
	for _, e := range p.Entries {
		if !e.OK() {
			return true
		}
	}
	return false
}

// Format joins the successful entries as "{name}'s advice: {text}",
// separated by blank lines, in pool order. Failed entries are omitted.
func (p Pool) Format() string {
	parts := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.OK() {
			parts = append(parts, fmt.Sprintf("%s's advice: %s", e.Name, e.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// Material implements the synthesizer's material contract.
func (p Pool) Material() string { return p.Format() }

// FailureRecords converts the failed entries into Failure records for stage.
func (p Pool) FailureRecords(stage string) []Failure {
	var out []Failure
	for _, e := range p.Entries {
		if !e.OK() {
			out = append(out, NewFailure(stage, e.BackendID, e.Name, e.Err))
		}
	}
	return out
}

// Errors returns the slot errors in order.
func (p Pool) Errors() []error {
	var out []error
	for _, e := range p.Entries {
		if e.Err != nil {
			out = append(out, e.Err)
		}
	}
	return out
}

// Failure records which backend failed, in which stage, and why.
type Failure struct {
	Stage     string `json:"stage"`
	BackendID string `json:"backend_id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// NewFailure builds a Failure from a backend error.
func NewFailure(stage, backendID, name string, err error) Failure {
	f := Failure{
		Stage:     stage,
		BackendID: backendID,
		Name:      name,
		Kind:      string(errors.KindOf(err)),
	}
	if err != nil {
		f.Message = err.Error()
	}
	return f
}

// String returns a one-line description.
func (f Failure) String() string {
	return fmt.Sprintf("%s (%s) failed during %s: %s", f.Name, f.BackendID, f.Stage, f.Kind)
}
