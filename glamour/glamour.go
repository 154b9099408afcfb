// Package glamour implements [ponder.Renderer] with glamour's stylesheet
// driven markdown renderer.
package glamour

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/fwojciec/ponder"
	"github.com/fwojciec/ponder/goldmark"
)

// Interface compliance check.
var _ ponder.Renderer = (*Renderer)(nil)

// Renderer renders answers with glamour. Reasoning text and inputs glamour
// rejects go through the goldmark renderer.
type Renderer struct {
	style    string
	fallback *goldmark.Renderer

	mu    sync.Mutex
	term  *glamour.TermRenderer
	width int
}

// Option configures a [Renderer].
type Option func(*Renderer)

// WithStyle selects a glamour standard style ("dark", "light", "notty",
// "ascii", ...). "auto" or "" detects the terminal background.
func WithStyle(style string) Option {
	return func(r *Renderer) { r.style = style }
}

// WithFallback sets the renderer used for plain text and render failures.
func WithFallback(fallback *goldmark.Renderer) Option {
	return func(r *Renderer) { r.fallback = fallback }
}

// New creates a [Renderer].
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, o := range opts {
		o(r)
	}
	if r.fallback == nil {
		r.fallback = goldmark.New()
	}
	return r
}

// Markup renders src with glamour wrapped to width. The term renderer is
// rebuilt only when the width changes.
func (r *Renderer) Markup(src string, width int) string {
	if src == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	term, err := r.renderer(width)
	if err != nil {
		return r.fallback.Markup(src, width)
	}
	out, err := term.Render(src)
	if err != nil || out == "" {
		return r.fallback.Markup(src, width)
	}
	return strings.Trim(out, "\n")
}

// Plain delegates to the fallback renderer.
func (r *Renderer) Plain(src string, width int) string {
	return r.fallback.Plain(src, width)
}

func (r *Renderer) renderer(width int) (*glamour.TermRenderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.term != nil && r.width == width {
		return r.term, nil
	}
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	}
	if r.style == "" || r.style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(r.style))
	}
	term, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	r.term = term
	r.width = width
	return term, nil
}
