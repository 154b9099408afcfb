package latex

import (
	"strings"
	"unicode"
)

// Convert renders the body of one TeX math span as Unicode text. Constructs
// without a Unicode rendition are kept in their source form.
func Convert(tex string) string {
	tex = strings.ReplaceAll(tex, "\u00a0", " ")
	p := &converter{src: []rune(tex)}
	return strings.Join(strings.Fields(p.expr(false)), " ")
}

type converter struct {
	src []rune
	pos int
}

func (p *converter) eof() bool { return p.pos >= len(p.src) }

func (p *converter) peek() rune { return p.src[p.pos] }

// expr converts atoms until the end of input, or the closing brace of the
// current group when inGroup is set.
func (p *converter) expr(inGroup bool) string {
	var b strings.Builder
	for !p.eof() {
		if p.peek() == '}' {
			if inGroup {
				p.pos++
				return b.String()
			}
			p.pos++
			b.WriteRune('}')
			continue
		}
		b.WriteString(p.atom())
	}
	return b.String()
}

func (p *converter) atom() string {
	r := p.peek()
	p.pos++
	switch r {
	case '{':
		return p.expr(true)
	case '\\':
		return p.command()
	case '^':
		return script(p.argument(), superscripts, "^")
	case '_':
		return script(p.argument(), subscripts, "_")
	case '~':
		return " "
	}
	return string(r)
}

// argument reads one atom as a command argument, skipping leading spaces.
func (p *converter) argument() string {
	for !p.eof() && p.peek() == ' ' {
		p.pos++
	}
	if p.eof() {
		return ""
	}
	return p.atom()
}

// name reads a control word or a single control symbol after a backslash.
func (p *converter) name() string {
	if p.eof() {
		return ""
	}
	start := p.pos
	if !isLetter(p.peek()) {
		p.pos++
		return string(p.src[start:p.pos])
	}
	for !p.eof() && isLetter(p.peek()) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *converter) command() string {
	name := p.name()
	switch name {
	case "":
		return `\`
	case "frac", "dfrac", "tfrac":
		num, den := p.argument(), p.argument()
		return group(num) + "/" + group(den)
	case "sqrt":
		return "√" + group(p.argument())
	case "text", "textrm", "textit", "textbf", "mathrm", "mathit", "mathbf",
		"mathsf", "mathtt", "operatorname", "boldsymbol", "mbox":
		return p.argument()
	case "mathbb":
		return strings.Map(func(r rune) rune {
			if bb, ok := blackboard[r]; ok {
				return bb
			}
			return r
		}, p.argument())
	case "left", "right", "big", "Big", "bigg", "Bigg", "displaystyle":
		return ""
	case "overline", "bar":
		return combine(p.argument(), '\u0305')
	case "hat":
		return combine(p.argument(), '\u0302')
	case "vec":
		return combine(p.argument(), '\u20d7')
	case "dot":
		return combine(p.argument(), '\u0307')
	case "tilde":
		return combine(p.argument(), '\u0303')
	}
	if s, ok := symbols[name]; ok {
		return s
	}
	return `\` + name
}

// script renders s as a super- or subscript. It falls back to the caret or
// underscore form when some rune has no script variant.
func script(s string, table map[rune]rune, marker string) string {
	if s == "" {
		return marker
	}
	var b strings.Builder
	for _, r := range s {
		mapped, ok := table[r]
		if !ok {
			if len([]rune(s)) == 1 {
				return marker + s
			}
			return marker + "(" + s + ")"
		}
		b.WriteRune(mapped)
	}
	return b.String()
}

// group parenthesizes s unless it reads as a single term.
func group(s string) string {
	if len([]rune(s)) <= 1 || !strings.ContainsAny(s, " +-−*/=×·±<>≤≥,") {
		return s
	}
	return "(" + s + ")"
}

// combine puts a combining mark after every rune of s.
func combine(s string, mark rune) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if !unicode.IsSpace(r) {
			b.WriteRune(mark)
		}
	}
	return b.String()
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
