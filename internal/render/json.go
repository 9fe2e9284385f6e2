package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/workflows/voting"
)

// JSONRenderer writes the result as one indented JSON document.
type JSONRenderer struct {
	out io.Writer
}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

type responseView struct {
	BackendID  string `json:"backend_id"`
	Name       string `json:"name"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type turnView struct {
	Index   int    `json:"index"`
	Role    string `json:"role"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Failed  bool   `json:"failed,omitempty"`
}

type debateView struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Rounds int        `json:"rounds"`
	Turns  []turnView `json:"turns"`
}

type resultView struct {
	RunID      string             `json:"run_id"`
	Strategy   string             `json:"strategy"`
	Problem    string             `json:"problem"`
	Answer     string             `json:"answer"`
	Degraded   bool               `json:"degraded"`
	Failures   []ensemble.Failure `json:"failures,omitempty"`
	Responses  []responseView     `json:"responses"`
	Tally      *voting.Tally      `json:"tally,omitempty"`
	Debate     *debateView        `json:"debate,omitempty"`
	Started    time.Time          `json:"started"`
	DurationMS int64              `json:"duration_ms"`
}

func responses(p ensemble.Pool) []responseView {
	out := make([]responseView, 0, p.Len())
	for _, e := range p.Entries {
		v := responseView{
			BackendID:  e.BackendID,
			Name:       e.Name,
			Text:       e.Text,
			DurationMS: e.Duration.Milliseconds(),
		}
		if e.Err != nil {
			v.Error = e.Err.Error()
			v.Kind = string(errors.KindOf(e.Err))
		}
		out = append(out, v)
	}
	return out
}

func view(res *council.Result) resultView {
	v := resultView{
		RunID:      res.RunID,
		Strategy:   string(res.Strategy),
		Problem:    res.Problem.Text(),
		Answer:     res.Answer,
		Degraded:   res.Degraded,
		Failures:   res.Failures,
		Responses:  responses(res.Responses),
		Tally:      res.Tally,
		Started:    res.Started,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Debate != nil {
		d := &debateView{
			ID:     res.Debate.ID(),
			Status: string(res.Debate.Status()),
			Rounds: res.Debate.Rounds(),
		}
		for _, t := range res.Transcript() {
			d.Turns = append(d.Turns, turnView{
				Index:   t.Index,
				Role:    string(t.Role),
				Speaker: t.SpeakerID,
				Text:    t.Text,
				Failed:  !t.OK(),
			})
		}
		v.Debate = d
	}
	return v
}

// Render writes res as JSON.
func (r *JSONRenderer) Render(ctx context.Context, res *council.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view(res)); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
