package goldmark

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// sanitize strips escape sequences and control characters so reasoning text
// is shown literally. Tabs and newlines survive; CRLF becomes LF and a lone
// CR overwrites from the start of its line, as a terminal would.
func sanitize(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || r == '\n' || r == '\r' || (r > 0x1F && r != 0x7F && (r < 0x80 || r >= 0xA0)) {
			b.WriteRune(r)
		}
	}
	s = b.String()

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.ContainsRune(line, '\r') {
			lines[i] = overwriteCR(line)
		}
	}
	return strings.Join(lines, "\n")
}

// overwriteCR resolves carriage returns within a single line.
func overwriteCR(line string) string {
	segments := strings.Split(line, "\r")
	buf := []rune(segments[0])
	for _, seg := range segments[1:] {
		for j, r := range []rune(seg) {
			if j < len(buf) {
				buf[j] = r
			} else {
				buf = append(buf, r)
			}
		}
	}
	return string(buf)
}
