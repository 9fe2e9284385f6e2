package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/quorum/internal/council"
)

// TextRenderer writes the banner, optional tally or transcript, and the
// answer as plain text.
type TextRenderer struct {
	out io.Writer
}

// NewTextRenderer creates a TextRenderer.
func NewTextRenderer(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out}
}

// Render writes res.
func (r *TextRenderer) Render(ctx context.Context, res *council.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var sb strings.Builder
	if banner := Banner(res); banner != "" {
		sb.WriteString(banner)
		sb.WriteString("\n\n")
	}
	if res.Tally != nil {
		sb.WriteString(res.Tally.String())
		sb.WriteString("\n\n")
	}
	if res.Debate != nil && res.Debate.Transcript().Len() > 0 {
		sb.WriteString("Transcript:\n")
		sb.WriteString(res.Debate.Transcript().String())
		sb.WriteString("\n\n")
	}
	sb.WriteString(res.Answer)
	sb.WriteString("\n")

	if _, err := io.WriteString(r.out, sb.String()); err != nil {
		return fmt.Errorf("write answer: %w", err)
	}
	return nil
}
