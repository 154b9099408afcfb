package ponder

import "strings"

// Delimiter tokens marking the reasoning region. Matching is ASCII
// case-insensitive.
const (
	ThinkStart = "<think>"
	ThinkEnd   = "</think>"
)

// Segmentation is the split of accumulated stream text into a reasoning
// region and an answer region. It is derived from the full text on every
// fragment and never stored incrementally.
type Segmentation struct {
	Reasoning         string
	HasReasoning      bool // false when no start token has been seen
	Answer            string
	ReasoningComplete bool
}

// Segment splits text into reasoning and answer regions.
//
// Without a start token the whole text, with any stray end tokens removed,
// is the answer. With a start token but no end token after it, everything
// after the start token is pending reasoning and the answer is empty. With
// both, the reasoning is the text between them and the answer is the text
// after the end token. Text before the start token belongs to neither
// region. Only the first start token is honoured.
func Segment(text string) Segmentation {
	start := indexFold(text, ThinkStart, 0)
	if start < 0 {
		return Segmentation{Answer: strings.TrimSpace(removeFold(text, ThinkEnd))}
	}
	body := start + len(ThinkStart)
	end := indexFold(text, ThinkEnd, body)
	if end < 0 {
		return Segmentation{
			Reasoning:    strings.TrimSpace(text[body:]),
			HasReasoning: true,
		}
	}
	return Segmentation{
		Reasoning:         strings.TrimSpace(text[body:end]),
		HasReasoning:      true,
		Answer:            strings.TrimSpace(text[end+len(ThinkEnd):]),
		ReasoningComplete: true,
	}
}

// Settled returns the segmentation to display once the stream has ended.
// Reasoning that never saw its end token is promoted to the answer.
func (s Segmentation) Settled() Segmentation {
	if !s.HasReasoning || s.ReasoningComplete {
		return s
	}
	return Segmentation{Answer: s.Reasoning}
}

// indexFold returns the byte offset of the first ASCII case-insensitive
// occurrence of token in s at or after from, or -1. token must be ASCII.
// Non-ASCII bytes never fold, so offsets stay valid for UTF-8 input.
func indexFold(s, token string, from int) int {
	n := len(token)
	for i := from; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], token) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// removeFold deletes every case-insensitive occurrence of token from s.
func removeFold(s, token string) string {
	i := indexFold(s, token, 0)
	if i < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for i >= 0 {
		b.WriteString(s[last:i])
		last = i + len(token)
		i = indexFold(s, token, last)
	}
	b.WriteString(s[last:])
	return b.String()
}
