package goldmark

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// KindMath is the node kind of inline and display math spans.
var KindMath = ast.NewNodeKind("Math")

// Math is a math span kept verbatim, delimiters included.
type Math struct {
	ast.BaseInline
	Literal []byte
	Display bool
}

// Kind implements ast.Node.
func (n *Math) Kind() ast.NodeKind { return KindMath }

// Dump implements ast.Node.
func (n *Math) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Literal": string(n.Literal)}, nil)
}

// delimiter pairs, longest opener first.
var mathDelimiters = []struct {
	open, close string
	display     bool
}{
	{"$$", "$$", true},
	{`\[`, `\]`, true},
	{`\(`, `\)`, false},
	{"$", "$", false},
}

// mathParser recognizes math spans on a single line so markdown emphasis
// and escapes do not mangle them.
type mathParser struct{}

func (mathParser) Trigger() []byte {
	return []byte{'$', '\\'}
}

func (mathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	for _, d := range mathDelimiters {
		if !bytes.HasPrefix(line, []byte(d.open)) {
			continue
		}
		rest := line[len(d.open):]
		end := bytes.Index(rest, []byte(d.close))
		if end <= 0 {
			continue
		}
		body := rest[:end]
		// "$5 and $6" is currency, not math.
		if d.open == "$" && (body[0] == ' ' || body[len(body)-1] == ' ') {
			return nil
		}
		n := len(d.open) + end + len(d.close)
		literal := make([]byte, n)
		copy(literal, line[:n])
		block.Advance(n)
		return &Math{Literal: literal, Display: d.display}
	}
	return nil
}
