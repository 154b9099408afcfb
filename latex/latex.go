// Package latex implements [ponder.Typesetter] by rewriting TeX math spans
// in rendered terminal output as Unicode text.
//
// Spans are delimited by $...$, $$...$$, \(...\) or \[...\] on a single
// line. Escape sequences in the rendered output are passed through
// untouched, and a span never crosses one.
package latex

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/ponder"
)

var _ ponder.Typesetter = (*Typesetter)(nil)

// Typesetter converts math spans to Unicode.
type Typesetter struct {
	logger *slog.Logger
}

// Option configures a [Typesetter].
type Option func(*Typesetter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Typesetter) { t.logger = logger }
}

// New creates a [Typesetter].
func New(opts ...Option) *Typesetter {
	t := &Typesetter{logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Typeset rewrites every math span in rendered.
func (t *Typesetter) Typeset(ctx context.Context, rendered string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(rendered))
	spans := 0
	for rest := rendered; rest != ""; {
		if rest[0] == ansi.ESC {
			_, _, n, _ := ansi.DecodeSequence(rest, ansi.NormalState, nil)
			n = max(n, 1)
			b.WriteString(rest[:n])
			rest = rest[n:]
			continue
		}
		end := strings.IndexByte(rest, ansi.ESC)
		if end < 0 {
			end = len(rest)
		}
		text, count := Replace(rest[:end])
		b.WriteString(text)
		spans += count
		rest = rest[end:]
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.logger.Debug("typeset", "spans", spans)
	return b.String(), nil
}

type delimiter struct {
	open, close string
}

// Longest opener first.
var delimiters = []delimiter{
	{"$$", "$$"},
	{`\[`, `\]`},
	{`\(`, `\)`},
	{"$", "$"},
}

// Replace converts the math spans of a text without escape sequences and
// reports how many it converted.
func Replace(text string) (string, int) {
	var b strings.Builder
	count := 0
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '$' && c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		body, n, ok := span(text[i:])
		if !ok {
			b.WriteByte(c)
			i++
			if c == '\\' && i < len(text) {
				b.WriteByte(text[i])
				i++
			}
			continue
		}
		b.WriteString(Convert(body))
		count++
		i += n
	}
	return b.String(), count
}

// span matches a math span at the start of s, returning its body and
// total length.
func span(s string) (string, int, bool) {
	for _, d := range delimiters {
		if !strings.HasPrefix(s, d.open) {
			continue
		}
		rest := s[len(d.open):]
		end := strings.Index(rest, d.close)
		if end <= 0 || strings.ContainsRune(rest[:end], '\n') {
			continue
		}
		body := rest[:end]
		first, _ := utf8.DecodeRuneInString(body)
		last, _ := utf8.DecodeLastRuneInString(body)
		if d.open == "$" && (unicode.IsSpace(first) || unicode.IsSpace(last)) {
			return "", 0, false
		}
		return body, len(d.open) + end + len(d.close), true
	}
	return "", 0, false
}
