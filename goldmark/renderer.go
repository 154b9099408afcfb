package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/ponder"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// minItemWidth bounds how narrow a list item body may wrap.
const minItemWidth = 10

type palette struct {
	strong    lipgloss.Style
	emphasis  lipgloss.Style
	heading   lipgloss.Style
	faint     lipgloss.Style
	link      lipgloss.Style
	quote     lipgloss.Style
	codeStyle string
}

func newPalette(theme ponder.Theme, codeStyle string) *palette {
	return &palette{
		strong:    lipgloss.NewStyle().Bold(true),
		emphasis:  lipgloss.NewStyle().Italic(true),
		heading:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		faint:     mutedStyle(theme),
		link:      lipgloss.NewStyle().Underline(true),
		quote:     lipgloss.NewStyle().Foreground(ansiColor(theme.Reasoning)).Italic(true),
		codeStyle: codeStyle,
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

// render parses source and lays it out as styled terminal text.
func (p *palette) render(md parser.Parser, source []byte, width int) string {
	doc := md.Parse(text.NewReader(source))
	w := &layout{palette: p, src: source}
	w.blocks(doc, width)
	return strings.TrimRight(w.out.String(), "\n")
}

// layout accumulates the output of one render.
type layout struct {
	*palette
	src []byte
	out bytes.Buffer
}

func (w *layout) sub() *layout {
	return &layout{palette: w.palette, src: w.src}
}

func (w *layout) blocks(parent ast.Node, width int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, width)
	}
}

func (w *layout) block(n ast.Node, width int) {
	switch b := n.(type) {
	case *ast.Paragraph:
		w.line(fill(w.inlines(b), width))
	case *ast.Heading:
		w.line(fill(w.heading.Render(w.inlines(b)), width))
	case *ast.FencedCodeBlock:
		w.fenced(b)
	case *ast.CodeBlock:
		for _, l := range codeLines(b, w.src) {
			w.line(w.gutter() + l)
		}
	case *ast.List:
		w.list(b, width, 0)
	case *ast.ThematicBreak:
		w.line("---")
	case *ast.Blockquote:
		inner := w.sub()
		inner.blocks(b, width-2)
		bar := w.faint.Render("┃") + " "
		for _, l := range strings.Split(strings.TrimRight(inner.out.String(), "\n"), "\n") {
			w.line(bar + w.quote.Render(l))
		}
	case *ast.HTMLBlock:
		for i := 0; i < b.Lines().Len(); i++ {
			seg := b.Lines().At(i)
			w.out.Write(seg.Value(w.src))
		}
		return
	default:
		w.blocks(n, width)
		return
	}
	if n.NextSibling() != nil {
		w.out.WriteByte('\n')
	}
}

func (w *layout) line(s string) {
	w.out.WriteString(s)
	w.out.WriteByte('\n')
}

func (w *layout) gutter() string {
	return w.faint.Render("│") + " "
}

// fenced writes a code block under its language label. Highlighting is
// dropped if it changes the line count.
func (w *layout) fenced(b *ast.FencedCodeBlock) {
	lang := string(b.Language(w.src))
	if lang != "" {
		w.line(w.faint.Render(lang))
	}
	src := codeLines(b, w.src)
	shown := highlight(strings.Join(src, "\n"), lang, w.codeStyle)
	if len(shown) != len(src) {
		shown = src
	}
	for _, l := range shown {
		w.line(w.gutter() + l)
	}
}

func codeLines(n ast.Node, source []byte) []string {
	segs := n.Lines()
	lines := make([]string, 0, segs.Len())
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		lines = append(lines, strings.TrimRight(string(seg.Value(source)), "\n"))
	}
	return lines
}

func fill(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// list writes each item behind its marker. Nested lists are indented one
// level deeper and the parent's remaining text aligns under its marker.
func (w *layout) list(l *ast.List, width, depth int) {
	indent := strings.Repeat("  ", depth)
	num := l.Start
	for c := l.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.ListItem); !ok {
			continue
		}
		marker := "- "
		if l.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		body := w.sub()
		for part := c.FirstChild(); part != nil; part = part.NextSibling() {
			switch p := part.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				body.out.WriteString(w.inlines(p))
			case *ast.List:
				if body.out.Len() > 0 {
					w.item(indent+marker, body.out.String(), width)
					body.out.Reset()
				}
				w.list(p, width, depth+1)
				marker = strings.Repeat(" ", len(marker))
			default:
				body.block(part, width)
			}
		}
		if body.out.Len() > 0 {
			w.item(indent+marker, body.out.String(), width)
		}
	}
}

// item wraps content beside prefix, hanging later lines under the content.
func (w *layout) item(prefix, content string, width int) {
	hang := strings.Repeat(" ", len(prefix))
	wrapped := fill(content, max(width-len(prefix), minItemWidth))
	for i, l := range strings.Split(wrapped, "\n") {
		if i > 0 {
			prefix = hang
		}
		w.line(prefix + l)
	}
}

func (w *layout) inlines(parent ast.Node) string {
	var b strings.Builder
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		w.inline(n, &b)
	}
	return b.String()
}

func (w *layout) inline(n ast.Node, b *strings.Builder) {
	switch in := n.(type) {
	case *ast.Text:
		b.Write(in.Segment.Value(w.src))
		switch {
		case in.HardLineBreak():
			if in.SoftLineBreak() {
				b.WriteByte(' ')
			}
			b.WriteByte('\n')
		case in.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(in.Value)
	case *ast.Emphasis:
		// ***x*** parses as nested emphasis, so only levels 1 and 2 occur.
		style := w.strong
		if in.Level == 1 {
			style = w.emphasis
		}
		b.WriteString(style.Render(w.inlines(in)))
	case *ast.CodeSpan:
		b.WriteString(w.strong.Render(w.inlines(in)))
	case *ast.Link:
		w.target(b, w.inlines(in), string(in.Destination))
	case *ast.Image:
		w.target(b, w.inlines(in), string(in.Destination))
	case *ast.AutoLink:
		b.WriteString(w.link.Render(string(in.URL(w.src))))
	case *Math:
		// Non-breaking spaces keep a span on one wrapped line.
		b.WriteString(strings.ReplaceAll(string(in.Literal), " ", "\u00a0"))
	case *ast.RawHTML:
		for i := 0; i < in.Segments.Len(); i++ {
			seg := in.Segments.At(i)
			b.Write(seg.Value(w.src))
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.inline(c, b)
		}
	}
}

// target writes link text followed by its destination.
func (w *layout) target(b *strings.Builder, label, dest string) {
	b.WriteString(w.link.Render(label))
	b.WriteByte(' ')
	b.WriteString(w.faint.Render("(" + dest + ")"))
}
