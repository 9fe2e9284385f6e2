package render

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"

	"github.com/Iron-Ham/quorum/internal/council"
)

const defaultWidth = 80

// TerminalRenderer prints the answer as styled markdown.
type TerminalRenderer struct {
	out   io.Writer
	width int
}

// NewTerminalRenderer creates a TerminalRenderer wrapping at width.
func NewTerminalRenderer(out io.Writer, width int) *TerminalRenderer {
	if width <= 0 {
		width = defaultWidth
	}
	return &TerminalRenderer{out: out, width: width}
}

// Render writes the styled answer. If glamour cannot style it, the raw
// markdown is written instead.
func (r *TerminalRenderer) Render(ctx context.Context, res *council.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	md := Markdown(res)
	out := md
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.width),
	)
	if err == nil {
		if styled, err := tr.Render(md); err == nil {
			out = styled
		}
	}
	if _, err := io.WriteString(r.out, out); err != nil {
		return fmt.Errorf("write answer: %w", err)
	}
	return nil
}
