package render

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/workflows/voting"
)

func testResult(t *testing.T, strategy council.Strategy, degraded bool) *council.Result {
	t.Helper()
	p, err := ensemble.NewProblem("Reverse a linked list.")
	if err != nil {
		t.Fatal(err)
	}
	res := &council.Result{
		RunID:    "run-1",
		Strategy: strategy,
		Problem:  p,
		Responses: ensemble.Pool{Kind: ensemble.KindResponses, Entries: []ensemble.Entry{
			{BackendID: "openai", Name: "ChatGPT", Text: "Use three pointers.", Duration: 20 * time.Millisecond},
			{BackendID: "gemini", Name: "Gemini", Err: errors.NewBackendError(errors.KindTimeout, "gemini", "deadline exceeded", nil)},
		}},
		Answer:   "## Answer\n\nIterate with `prev`, `cur` and `next`.",
		Started:  time.Unix(0, 0).UTC(),
		Duration: time.Second,
	}
	if degraded {
		res.Degraded = true
		res.Failures = []ensemble.Failure{{
			Stage: "dispatch", BackendID: "gemini", Name: "Gemini", Kind: string(errors.KindTimeout),
		}}
	}
	return res
}

func TestBanner(t *testing.T) {
	if got := Banner(testResult(t, council.StrategyVote, false)); got != "" {
		t.Errorf("clean result banner = %q, want empty", got)
	}
	got := Banner(testResult(t, council.StrategyVote, true))
	for _, want := range []string{"Degraded result: 1 backend failure(s)", "- Gemini (gemini) failed during dispatch: BackendTimeout"} {
		if !strings.Contains(got, want) {
			t.Errorf("banner missing %q:\n%s", want, got)
		}
	}
	if Banner(nil) != "" {
		t.Error("nil result should have no banner")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{FormatHTML, false},
		{FormatTerminal, false},
		{FormatText, false},
		{FormatJSON, false},
		{"pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			r, err := New(tt.format, Options{Out: &bytes.Buffer{}, HTML: HTMLOptions{Fs: afero.NewMemMapFs()}})
			if tt.wantErr {
				var verr *errors.ValidationError
				if !errors.As(err, &verr) || verr.Field != "output.format" {
					t.Errorf("error = %v, want ValidationError on output.format", err)
				}
				return
			}
			if err != nil || r == nil {
				t.Errorf("New(%q) = %v, %v", tt.format, r, err)
			}
		})
	}
}

func TestHTMLRenderer(t *testing.T) {
	tests := []struct {
		name     string
		strategy council.Strategy
		heading  string
	}{
		{"vote", council.StrategyVote, "Response from AI Advisors"},
		{"committee", council.StrategyCommittee, "Response from AI Advisors"},
		{"debate", council.StrategyDebate, "Response from AI Oracles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			var out bytes.Buffer
			var opened []string
			r := NewHTMLRenderer(&out, HTMLOptions{
				Fs:     fs,
				Dir:    "/out",
				Open:   true,
				Opener: func(url string) error { opened = append(opened, url); return nil },
			})
			if err := r.Render(context.Background(), testResult(t, tt.strategy, true)); err != nil {
				t.Fatalf("Render: %v", err)
			}

			files, err := afero.ReadDir(fs, "/out")
			if err != nil || len(files) != 1 {
				t.Fatalf("files = %v, %v", files, err)
			}
			path := "/out/" + files[0].Name()
			if !strings.HasPrefix(files[0].Name(), "quorum-") || !strings.HasSuffix(path, ".html") {
				t.Errorf("unexpected file name %q", files[0].Name())
			}
			data, _ := afero.ReadFile(fs, path)
			page := string(data)
			for _, want := range []string{
				"<title>Interactive AI Response</title>",
				"<h1>" + tt.heading + "</h1>",
				"<h2>Answer</h2>",
				"<code>prev</code>",
				"Gemini (gemini) failed during dispatch",
			} {
				if !strings.Contains(page, want) {
					t.Errorf("page missing %q", want)
				}
			}
			if !strings.Contains(out.String(), path) {
				t.Errorf("output %q does not name %s", out.String(), path)
			}
			if len(opened) != 1 || opened[0] != "file://"+path {
				t.Errorf("opened = %v", opened)
			}
		})
	}
}

func TestHTMLRenderer_NoOpen(t *testing.T) {
	called := false
	r := NewHTMLRenderer(nil, HTMLOptions{
		Fs:     afero.NewMemMapFs(),
		Opener: func(string) error { called = true; return nil },
	})
	if err := r.Render(context.Background(), testResult(t, council.StrategyVote, false)); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("opener called with Open=false")
	}
}

func TestHTMLRenderer_OpenFails(t *testing.T) {
	r := NewHTMLRenderer(nil, HTMLOptions{
		Fs:     afero.NewMemMapFs(),
		Open:   true,
		Opener: func(string) error { return errors.New("no browser") },
	})
	err := r.Render(context.Background(), testResult(t, council.StrategyVote, false))
	if err == nil || !strings.Contains(err.Error(), "open browser") {
		t.Errorf("error = %v, want open browser failure", err)
	}
}

func TestHTMLRenderer_EscapesRawHTML(t *testing.T) {
	r := NewHTMLRenderer(nil, HTMLOptions{Fs: afero.NewMemMapFs()})
	res := testResult(t, council.StrategyVote, false)
	res.Answer = "<script>alert(1)</script>"
	page, err := r.Page(res)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(page), "<script>") {
		t.Error("raw HTML from a backend reached the page")
	}
}

func TestTerminalRenderer(t *testing.T) {
	var out bytes.Buffer
	r := NewTerminalRenderer(&out, 60)
	if err := r.Render(context.Background(), testResult(t, council.StrategyVote, true)); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "Answer") || !strings.Contains(s, "Degraded result") {
		t.Errorf("terminal output missing content:\n%s", s)
	}
}

func TestTextRenderer(t *testing.T) {
	res := testResult(t, council.StrategyVote, true)
	res.Tally = &voting.Tally{
		Winner:     "openai",
		WinnerName: "ChatGPT",
		Counts:     []voting.Count{{ID: "openai", Name: "ChatGPT", Votes: 1}},
		Summary:    "The winning solution is ChatGPT's advice with 1 of 1 votes.",
	}
	var out bytes.Buffer
	if err := NewTextRenderer(&out).Render(context.Background(), res); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	bannerAt := strings.Index(s, "Degraded result")
	tallyAt := strings.Index(s, "Winner: ChatGPT")
	answerAt := strings.Index(s, "## Answer")
	if bannerAt < 0 || tallyAt < bannerAt || answerAt < tallyAt {
		t.Errorf("want banner, tally, answer in order:\n%s", s)
	}
}

func TestJSONRenderer(t *testing.T) {
	var out bytes.Buffer
	if err := NewJSONRenderer(&out).Render(context.Background(), testResult(t, council.StrategyCommittee, true)); err != nil {
		t.Fatal(err)
	}
	var got resultView
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if got.RunID != "run-1" || got.Strategy != "committee" || !got.Degraded {
		t.Errorf("header fields = %+v", got)
	}
	if len(got.Responses) != 2 || got.Responses[1].Kind != string(errors.KindTimeout) || got.Responses[0].DurationMS != 20 {
		t.Errorf("responses = %+v", got.Responses)
	}
	if len(got.Failures) != 1 || got.Failures[0].BackendID != "gemini" {
		t.Errorf("failures = %+v", got.Failures)
	}
	if got.Debate != nil || got.Tally != nil {
		t.Error("committee result should carry no tally or debate")
	}
}

func TestRender_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := testResult(t, council.StrategyVote, false)
	renderers := []Renderer{
		NewHTMLRenderer(nil, HTMLOptions{Fs: afero.NewMemMapFs()}),
		NewTerminalRenderer(&bytes.Buffer{}, 0),
		NewTextRenderer(&bytes.Buffer{}),
		NewJSONRenderer(&bytes.Buffer{}),
	}
	for _, r := range renderers {
		if err := r.Render(ctx, res); !errors.Is(err, context.Canceled) {
			t.Errorf("%T: error = %v, want context.Canceled", r, err)
		}
	}
}
