package prompt

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
)

func mustProblem(t *testing.T, text string) ensemble.Problem {
	t.Helper()
	p, err := ensemble.NewProblem(text)
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	return p
}

func TestInstruction_Render(t *testing.T) {
	got := King.Render("sort a list", "A's advice: use sort.Slice")
	if !strings.HasPrefix(got, "Advisors' Advice:A's advice: use sort.Slice\n\n{Problem}: sort a list") {
		t.Errorf("Render() = %q", got)
	}
	// Single-brace labels stay literal.
	if !strings.Contains(got, "solve the given {problem}") {
		t.Errorf("literal {problem} label was replaced: %q", got)
	}

	summary := DebateSummary.Render("p", "transcript")
	if summary != "Summarize the conversation and conclude with a final answer to the p:\ntranscript" {
		t.Errorf("DebateSummary.Render() = %q", summary)
	}
}

func TestVoting(t *testing.T) {
	pool := ensemble.Pool{Entries: []ensemble.Entry{
		{BackendID: "a", Name: "Alpha", Text: "one"},
		{BackendID: "b", Name: "Beta", Err: errors.New("down")},
		{BackendID: "c", Name: "Gamma", Text: "two"},
	}}

	got := Voting(pool, mustProblem(t, "pick one"))

	if !strings.HasPrefix(got, "Voting Options = Alpha's advice: one\n\nGamma's advice: two\n\n") {
		t.Errorf("prompt should start with the formatted pool: %q", got)
	}
	if !strings.Contains(got, "best chance of solving the following problem: pick one") {
		t.Error("prompt should restate the problem")
	}
	if !strings.Contains(got, "- a: Alpha\n- c: Gamma\n") {
		t.Errorf("candidate list missing or wrong: %q", got)
	}
	if strings.Contains(got, "Beta") {
		t.Error("failed entries must not be candidates")
	}
	if !strings.Contains(got, "VOTE: <candidate id>") {
		t.Error("prompt should ask for the VOTE line")
	}
}

func TestDebatePrompts(t *testing.T) {
	pool := ensemble.Pool{Entries: []ensemble.Entry{{BackendID: "a", Name: "Alpha", Text: "hint"}}}
	p := mustProblem(t, "design a cache")

	opening := DebateOpening(pool, p, "Claude3", "OpenAI")
	want := "{ADVISORS' INSIGHTS}:Alpha's advice: hint\n\nHello Oracle OpenAI, this is Oracle Claude3."
	if !strings.HasPrefix(opening, want) {
		t.Errorf("DebateOpening() = %q", opening)
	}
	if !strings.HasSuffix(opening, "Solve the {PROBLEM}: design a cache") {
		t.Errorf("DebateOpening() should end with the problem: %q", opening)
	}

	role := DebateRole("Claude3", "OpenAI", p)
	if !strings.Contains(role, "push back at OpenAI Oracle") || !strings.HasSuffix(role, "design a cache") {
		t.Errorf("DebateRole() = %q", role)
	}
}
