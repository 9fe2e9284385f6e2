package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/quorum/internal/council"
)

var voteCmd = &cobra.Command{
	Use:   "vote [problem]",
	Short: "Ask every advisor, let them vote on the best answer",
	Long: `Send the problem to every backend in the ensemble, then show each
backend all the answers and ask it to vote for the best one. Ballots are
tallied; an ambiguous vote (or --mode arbiter) is settled by the vote
arbiter. The winning answer is announced by the synthesis arbiter.

The problem is read from problem.txt unless given inline or with -p.

Examples:
  quorum vote "Write a function that reverses a linked list"
  quorum vote -p task.md --only 'llama*,groq' --format terminal
  quorum vote --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStrategy(cmd, args, council.StrategyVote)
	},
}

var debateCmd = &cobra.Command{
	Use:   "debate [problem]",
	Short: "Ask every advisor, then let two oracles debate their insights",
	Long: `Send the problem to every backend in the ensemble, then brief two
oracles with the advisors' insights and let them discuss for a number of
rounds (two turns each). The synthesis arbiter summarizes the discussion
and concludes with a final answer.

Examples:
  quorum debate --a anthropic --b openai --rounds 2
  quorum debate -p problem.txt --on-turn-failure terminate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStrategy(cmd, args, council.StrategyDebate)
	},
}

var committeeCmd = &cobra.Command{
	Use:   "committee [problem]",
	Short: "Ask every advisor, then let one arbiter decide",
	Long: `Send the problem to every backend in the ensemble and hand all the
answers to the committee arbiter, which picks or merges them into the
final answer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStrategy(cmd, args, council.StrategyCommittee)
	},
}

var (
	voteMode     string
	debateA      string
	debateB      string
	debateRounds int
	turnFailure  string
)

func init() {
	for _, c := range []*cobra.Command{voteCmd, debateCmd, committeeCmd} {
		addRunFlags(c)
		rootCmd.AddCommand(c)
	}

	voteCmd.Flags().StringVar(&voteMode, "mode", "", "Vote mode: tally or arbiter (default from config)")

	debateCmd.Flags().StringVar(&debateA, "a", "", "Backend id of oracle A (default from config)")
	debateCmd.Flags().StringVar(&debateB, "b", "", "Backend id of oracle B (default from config)")
	debateCmd.Flags().IntVar(&debateRounds, "rounds", 0, "Debate rounds, two turns each (default from config)")
	debateCmd.Flags().StringVar(&turnFailure, "on-turn-failure", "", "placeholder or terminate (default from config)")
}
