package mock

import (
	"context"

	"github.com/fwojciec/ponder"
)

// Interface compliance checks.
var (
	_ ponder.Renderer   = (*Renderer)(nil)
	_ ponder.Typesetter = (*Typesetter)(nil)
)

// Renderer is a test double for ponder.Renderer. Nil functions return the
// source unchanged, which keeps session assertions readable.
type Renderer struct {
	MarkupFn func(src string, width int) string
	PlainFn  func(src string, width int) string
}

// Markup delegates to MarkupFn.
func (r *Renderer) Markup(src string, width int) string {
	if r.MarkupFn == nil {
		return src
	}
	return r.MarkupFn(src, width)
}

// Plain delegates to PlainFn.
func (r *Renderer) Plain(src string, width int) string {
	if r.PlainFn == nil {
		return src
	}
	return r.PlainFn(src, width)
}

// Typesetter is a test double for ponder.Typesetter.
// Set TypesetFn before calling Typeset.
type Typesetter struct {
	TypesetFn func(ctx context.Context, rendered string) (string, error)
}

// Typeset delegates to TypesetFn.
func (t *Typesetter) Typeset(ctx context.Context, rendered string) (string, error) {
	return t.TypesetFn(ctx, rendered)
}
