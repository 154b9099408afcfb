// Package goldmark renders markdown text to ANSI-styled terminal output
// using goldmark for parsing, chroma for code highlighting and lipgloss for
// styling. Math spans are passed through verbatim for a later typesetting
// pass.
package goldmark

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/ponder"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

// Interface compliance check.
var _ ponder.Renderer = (*Renderer)(nil)

// DefaultCodeStyle is the chroma style used for fenced code blocks.
const DefaultCodeStyle = "monokai"

// Renderer implements [ponder.Renderer].
type Renderer struct {
	theme     ponder.Theme
	codeStyle string
	md        goldmark.Markdown
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithTheme sets the color theme.
func WithTheme(theme ponder.Theme) Option {
	return func(r *Renderer) { r.theme = theme }
}

// WithCodeStyle sets the chroma style for fenced code blocks. An empty name
// disables highlighting.
func WithCodeStyle(name string) Option {
	return func(r *Renderer) { r.codeStyle = name }
}

// New creates a [Renderer].
func New(opts ...Option) *Renderer {
	r := &Renderer{
		theme:     ponder.DefaultTheme(),
		codeStyle: DefaultCodeStyle,
	}
	for _, o := range opts {
		o(r)
	}
	r.md = goldmark.New(goldmark.WithParserOptions(
		parser.WithInlineParsers(util.Prioritized(mathParser{}, 50)),
	))
	return r
}

// Markup parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks are
// rendered at full width without reflow.
func (r *Renderer) Markup(src string, width int) string {
	if src == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return newPalette(r.theme, r.codeStyle).render(r.md.Parser(), []byte(src), width)
}

// Plain returns src as literal text wrapped to width. Escape sequences and
// other control characters are removed so the text cannot style the
// terminal.
func (r *Renderer) Plain(src string, width int) string {
	if src == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return ansi.Wordwrap(sanitize(src), width, "")
}

// Render renders markdown with the given theme and the default code style.
func Render(source string, width int, theme ponder.Theme) string {
	return New(WithTheme(theme)).Markup(source, width)
}

// mutedStyle is shared by the code gutter and labels.
func mutedStyle(theme ponder.Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true)
}
