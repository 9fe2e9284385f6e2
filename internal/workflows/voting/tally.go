package voting

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/prompt"
)

// Count is the number of votes one candidate received.
type Count struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Votes int    `json:"votes"`
}

// Ballot is one voter's parsed vote.
type Ballot struct {
	VoterID string `json:"voter_id"`
	Choice  string `json:"choice,omitempty"` // candidate id; empty for an abstention
	Raw     string `json:"-"`
	Valid   bool   `json:"valid"`
}

// Tally is the outcome of a vote.
type Tally struct {
	Winner      string        `json:"winner,omitempty"`
	WinnerName  string        `json:"winner_name,omitempty"`
	Counts      []Count       `json:"counts"`
	Ballots     []Ballot      `json:"ballots"`
	Abstentions int           `json:"abstentions"`
	Summary     string        `json:"summary"`
	Arbitrated  bool          `json:"arbitrated"`
	Votes       ensemble.Pool `json:"-"`
}

// Valid returns the number of ballots that named a candidate.
func (t *Tally) Valid() int {
	n := 0
	for _, b := range t.Ballots {
		if b.Valid {
			n++
		}
	}
	return n
}

// Margin is the lead of the winner over the runner-up.
func (t *Tally) Margin() int {
	switch len(t.Counts) {
	case 0:
		return 0
	case 1:
		return t.Counts[0].Votes
	default:
		return t.Counts[0].Votes - t.Counts[1].Votes
	}
}

// Ambiguous reports whether the programmatic count cannot stand on its
// own: nobody cast a valid ballot, or the abstentions alone could
// overturn the lead.
func (t *Tally) Ambiguous() bool {
	if t.Valid() == 0 {
		return true
	}
	return t.Abstentions > 0 && t.Abstentions >= t.Margin()
}

// String is the material handed to the final synthesizer.
func (t *Tally) String() string {
	var sb strings.Builder
	if t.Winner != "" {
		fmt.Fprintf(&sb, "Winner: %s (%s) with %d of %d votes\n", t.WinnerName, t.Winner, t.Counts[0].Votes, len(t.Ballots))
	} else {
		sb.WriteString("Winner: none\n")
	}
	sb.WriteString("Counts:\n")
	for _, c := range t.Counts {
		fmt.Fprintf(&sb, "- %s (%s): %d\n", c.Name, c.ID, c.Votes)
	}
	if t.Abstentions > 0 {
		fmt.Fprintf(&sb, "Abstentions: %d\n", t.Abstentions)
	}
	if t.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(t.Summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Material implements synth.Material.
func (t *Tally) Material() string { return t.String() }

// CountVotes tallies votes against candidates. Each ballot is parsed to one
// candidate id; ballots naming nothing (or several candidates) are
// abstentions, as are failed vote slots. Counts are ordered by votes,
// ties broken by candidate order.
func CountVotes(votes ensemble.Pool, candidates []ensemble.Entry) *Tally {
	t := &Tally{Votes: votes}
	m := newMatcher(candidates)

	index := make(map[string]int, len(candidates))
	for i, c := range candidates {
		index[c.BackendID] = i
		t.Counts = append(t.Counts, Count{ID: c.BackendID, Name: c.Name})
	}

	for _, v := range votes.Entries {
		b := Ballot{VoterID: v.BackendID, Raw: v.Text}
		if v.OK() {
			if id, ok := m.parse(v.Text); ok {
				b.Choice, b.Valid = id, true
				t.Counts[index[id]].Votes++
			}
		}
		if !b.Valid {
			t.Abstentions++
		}
		t.Ballots = append(t.Ballots, b)
	}

	sort.SliceStable(t.Counts, func(i, j int) bool {
		return t.Counts[i].Votes > t.Counts[j].Votes
	})
	if len(t.Counts) > 0 && t.Counts[0].Votes > 0 {
		t.Winner, t.WinnerName = t.Counts[0].ID, t.Counts[0].Name
	}
	return t
}

// summary is the programmatic summary used when no arbiter is needed.
func (t *Tally) summary() string {
	if t.Winner == "" {
		return "No candidate received a vote."
	}
	return fmt.Sprintf("The winning solution is %s's advice with %d of %d votes.", t.WinnerName, t.Counts[0].Votes, len(t.Ballots))
}

type term struct {
	id string
	re *regexp.Regexp
	n  int
}

// matcher resolves free text to candidate ids by id or display name.
type matcher struct {
	exact map[string]string
	terms []term
}

func newMatcher(candidates []ensemble.Entry) *matcher {
	m := &matcher{exact: map[string]string{}}
	add := func(label, id string) {
		label = strings.TrimSpace(label)
		if label == "" {
			return
		}
		key := strings.ToLower(label)
		if _, ok := m.exact[key]; !ok {
			m.exact[key] = id
		}
		m.terms = append(m.terms, term{
			id: id,
			re: regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(label) + `($|[^\p{L}\p{N}_])`),
			n:  len(label),
		})
	}
	for _, c := range candidates {
		add(c.BackendID, c.BackendID)
		add(c.Name, c.BackendID)
	}
	// Longest labels claim their text first so "Llama3 70B" is not also
	// read as "Llama3".
	sort.SliceStable(m.terms, func(i, j int) bool { return m.terms[i].n > m.terms[j].n })
	return m
}

// parse returns the candidate a ballot voted for. The last VOTE: line
// wins, and a VOTE: line naming no candidate is an abstention. Without
// one, the ballot counts only if it mentions exactly one candidate.
func (m *matcher) parse(text string) (string, bool) {
	line, ok := voteLine(text)
	if !ok {
		return m.mentioned(text)
	}
	if id, ok := m.exact[strings.ToLower(line)]; ok {
		return id, true
	}
	return m.mentioned(line)
}

func (m *matcher) mentioned(text string) (string, bool) {
	found := ""
	for _, t := range m.terms {
		loc := t.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if found != "" && found != t.id {
			return "", false
		}
		found = t.id
		// Blank out every occurrence so shorter labels cannot match inside it.
		text = t.re.ReplaceAllStringFunc(text, func(s string) string { return strings.Repeat(" ", len(s)) })
	}
	return found, found != ""
}

// voteLine finds the last "VOTE: x" line and returns x with markup
// stripped.
func voteLine(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimLeft(strings.TrimSpace(lines[i]), "*#>-` ")
		if len(line) < len(prompt.VoteMarker) || !strings.EqualFold(line[:len(prompt.VoteMarker)], prompt.VoteMarker) {
			continue
		}
		rest := strings.Trim(line[len(prompt.VoteMarker):], " \t*`\"'.[]()<>")
		if rest != "" {
			return rest, true
		}
	}
	return "", false
}
