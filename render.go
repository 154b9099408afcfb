package ponder

import "context"

// Renderer converts text to terminal output synchronously.
// Markup interprets markdown; Plain shows the text literally, with any
// markup or control sequences neutralized. Both wrap to width.
type Renderer interface {
	Markup(src string, width int) string
	Plain(src string, width int) string
}

// Typesetter rewrites math notation in already-rendered answer output.
// It may be slow and is run off the host loop.
type Typesetter interface {
	Typeset(ctx context.Context, rendered string) (string, error)
}

// TypesetJob identifies one render that a typesetting pass applies to.
type TypesetJob struct {
	SessionID string
	Version   int
	Rendered  string
}
