package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Iron-Ham/quorum/internal/council"
)

// HTMLOptions configure the HTML renderer.
type HTMLOptions struct {
	// Fs receives the page; nil uses the OS file system.
	Fs afero.Fs
	// Dir is where the page is written; empty uses the system temp dir.
	Dir string
	// Open opens the page after writing it.
	Open bool
	// Opener opens a URL; nil uses OpenURL.
	Opener func(url string) error
}

// HTMLRenderer writes the answer as a standalone HTML page.
type HTMLRenderer struct {
	out  io.Writer
	opts HTMLOptions
	md   goldmark.Markdown
}

// NewHTMLRenderer creates an HTMLRenderer. The page path is printed to out
// when out is non-nil.
func NewHTMLRenderer(out io.Writer, opts HTMLOptions) *HTMLRenderer {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Opener == nil {
		opts.Opener = OpenURL
	}
	return &HTMLRenderer{
		out:  out,
		opts: opts,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Interactive AI Response</title>
<style>
body { font-family: 'Arial', sans-serif; background-color: #f4f4f4; margin: 40px; color: #333; }
.container { background-color: white; border: 1px solid #ccc; border-radius: 8px; padding: 20px; box-shadow: 0 4px 8px rgba(0,0,0,0.1); }
pre { background-color: #282a36; color: #f8f8f2; border-radius: 5px; border: 1px solid #ccc; padding: 10px; font-family: 'Consolas', 'Courier New', Courier, monospace; overflow: auto; white-space: pre-wrap; }
blockquote { border-left: 4px solid #e67e22; margin: 0 0 16px; padding: 4px 12px; background: #fdf2e9; }
h1 { color: #2c3e50; }
p, ol { line-height: 1.6; }
.meta { color: #888; font-size: 0.85em; }
</style>
</head>
<body>
<div class="container">
<h1>{{.Title}}</h1>
<p>{{.Subtitle}}</p>
{{.Body}}
<p class="meta">Run {{.RunID}} &middot; strategy {{.Strategy}}</p>
</div>
</body>
</html>
`))

type page struct {
	Title    string
	Subtitle string
	Body     template.HTML
	RunID    string
	Strategy string
}

// Page renders the full HTML document for res.
func (r *HTMLRenderer) Page(res *council.Result) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(Markdown(res)), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	title, subtitle := heading(res.Strategy)

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, page{
		Title:    title,
		Subtitle: subtitle,
		Body:     template.HTML(body.String()), //nolint:gosec // goldmark escapes raw HTML by default
		RunID:    res.RunID,
		Strategy: string(res.Strategy),
	})
	if err != nil {
		return nil, fmt.Errorf("execute page template: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes the page to a new temp file and optionally opens it.
func (r *HTMLRenderer) Render(ctx context.Context, res *council.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := r.Page(res)
	if err != nil {
		return err
	}

	f, err := afero.TempFile(r.opts.Fs, r.opts.Dir, "quorum-*.html")
	if err != nil {
		return fmt.Errorf("create html file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write html file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close html file: %w", err)
	}

	if r.out != nil {
		fmt.Fprintf(r.out, "Answer written to %s\n", path)
	}
	if r.opts.Open {
		if err := r.opts.Opener("file://" + path); err != nil {
			return fmt.Errorf("open browser: %w", err)
		}
	}
	return nil
}
