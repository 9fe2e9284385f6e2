// Package prompt builds every prompt quorum sends to a backend.
package prompt

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/ensemble"
)

// DefaultSystem is the system prompt for dispatch rounds and votes.
const DefaultSystem = config.DefaultSystemPrompt

// Instruction is a system prompt plus a user prompt template. The
// template may reference {{problem}} and {{material}}.
type Instruction struct {
	System   string
	Template string
}

// Render fills the template.
func (in Instruction) Render(problem, material string) string {
	return strings.NewReplacer("{{problem}}", problem, "{{material}}", material).Replace(in.Template)
}

// CountVotes asks the arbiter to count raw votes itself.
var CountVotes = Instruction{
	System: "You have the authority to count all votes and find the solution to the problem that got the most votes. " +
		"Return the highest voted solution",
	Template: "Count all the following votes: {{material}}\n\n" +
		"Print the winning solution with most votes and the numbers of votes:",
}

// AnnounceWinner asks the arbiter to state the winner of a counted vote.
var AnnounceWinner = Instruction{
	System: CountVotes.System,
	Template: "The votes on the following problem have been counted.\n\n{{material}}\n\n" +
		"Problem: {{problem}}\n\n" +
		"Print the winning solution with most votes and the numbers of votes:",
}

// DebateSummary asks the arbiter to extract the answer from a debate.
var DebateSummary = Instruction{
	System: "You are an expert at looking at a conversation between two smart oracles and extracting " +
		"the best answer to a problem from the conversation.",
	Template: "Summarize the conversation and conclude with a final answer to the {{problem}}:\n{{material}}",
}

// King asks the committee arbiter for its own ruling.
var King = Instruction{
	System: `You are a wise and knowledgeable coder and problem solver king who provides thoughtful answers to questions.

You have a council of advisors, who offer their insights to assist you.

Consider their perspectives and advice, but ultimately provide your own well-reasoned response to the
problem based on all context and advice. If you find their input helpful, feel free to acknowledge their
contributions in your answer.`,
	Template: "Advisors' Advice:{{material}}\n\n{Problem}: {{problem}}\n\n" +
		"Use the insights from the advisors to create a step-by-step plan to solve the given {problem}, " +
		"then solve the problem your way. Also, include footnotes to the best advisor contributions.",
}

// VoteMarker prefixes the machine-readable line of a ballot.
const VoteMarker = "VOTE:"

// Voting builds the ballot prompt. Candidates are the successful entries
// of pool, listed by id so votes can be parsed.
func Voting(pool ensemble.Pool, problem ensemble.Problem) string {
	var sb strings.Builder
	sb.WriteString("Voting Options = ")
	sb.WriteString(pool.Format())
	sb.WriteString("\n\nGive your vote to the answer above that you think will have the best chance of solving the following problem: ")
	sb.WriteString(problem.Text())
	sb.WriteString("\n\nCandidates:\n")
	for _, e := range pool.Successes() {
		fmt.Fprintf(&sb, "- %s: %s\n", e.BackendID, e.Name)
	}
	fmt.Fprintf(&sb, "\nExplain briefly, then end with one line of the form %s <candidate id>.", VoteMarker)
	return sb.String()
}

// DebateOpening is the brief every debate turn starts from.
func DebateOpening(advisors ensemble.Pool, problem ensemble.Problem, nameA, nameB string) string {
	return fmt.Sprintf("{ADVISORS' INSIGHTS}:%s\n\n"+
		"Hello Oracle %s, this is Oracle %s. Let's discuss and find a solution to the {PROBLEM} "+
		"while challenging and taking the {ADVISORS' INSIGHTS} into consideration. Solve the {PROBLEM}: %s",
		advisors.Format(), nameB, nameA, problem.Text())
}

// DebateRole is the system prompt for one oracle.
func DebateRole(self, other string, problem ensemble.Problem) string {
	return fmt.Sprintf("You are a wise and knowledgeable %s coder and problem solver expert who provides "+
		"thoughtful answers to questions. Discuss and push back at %s Oracle, challenge their suggestions "+
		"and evaluate the best solutions based on the context from other advisors answers to solve the problem %s",
		self, other, problem.Text())
}
