// Package render presents a run's result: an HTML page, markdown in the
// terminal, plain text or JSON. Degraded results always carry a banner
// naming the backends that failed and why.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// Output formats.
const (
	FormatHTML     = "html"
	FormatTerminal = "terminal"
	FormatText     = "text"
	FormatJSON     = "json"
)

// Renderer presents one result.
type Renderer interface {
	Render(ctx context.Context, res *council.Result) error
}

// Options configure New.
type Options struct {
	// Out receives terminal, text and JSON output, and the HTML file path.
	Out io.Writer
	// Width wraps terminal output; 0 uses 80 columns.
	Width int
	// HTML holds the HTML renderer settings.
	HTML HTMLOptions
}

// New returns the renderer for format.
func New(format string, opts Options) (Renderer, error) {
	switch format {
	case FormatHTML:
		return NewHTMLRenderer(opts.Out, opts.HTML), nil
	case FormatTerminal:
		return NewTerminalRenderer(opts.Out, opts.Width), nil
	case FormatText:
		return NewTextRenderer(opts.Out), nil
	case FormatJSON:
		return NewJSONRenderer(opts.Out), nil
	default:
		return nil, errors.NewValidationError("unknown output format").WithField("output.format").WithValue(format)
	}
}

// Banner describes a degraded result, or returns "" for a clean one.
func Banner(res *council.Result) string {
	if res == nil || !res.Degraded {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Degraded result: %d backend failure(s)\n", len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Markdown is the answer document shared by the HTML and terminal
// renderers.
func Markdown(res *council.Result) string {
	var sb strings.Builder
	if banner := Banner(res); banner != "" {
		lines := strings.Split(banner, "\n")
		fmt.Fprintf(&sb, "> **%s**\n>\n", lines[0])
		for _, l := range lines[1:] {
			fmt.Fprintf(&sb, "> %s\n", l)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(res.Answer)
	sb.WriteString("\n")
	return sb.String()
}

// heading is the page heading per strategy.
func heading(s council.Strategy) (title, subtitle string) {
	if s == council.StrategyDebate {
		return "Response from AI Oracles",
			"This section contains dynamically generated responses from a discussion between Oracle AI models, processed and finalized for the user."
	}
	return "Response from AI Advisors",
		"This section contains dynamically generated responses from various AI models, processed and finalized for the user."
}
