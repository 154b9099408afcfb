package ponder

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest message, in characters, the backend accepts.
const MaxMessageLength = 1000

// Request is one user submission.
type Request struct {
	Message   string
	Reasoning bool // ask the backend for a <think> region before the answer
}

// Validate checks the message is non-blank and within MaxMessageLength.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message is empty: %w", ErrValidation)
	}
	if n := utf8.RuneCountInString(r.Message); n > MaxMessageLength {
		return fmt.Errorf("message is %d characters, limit is %d: %w", n, MaxMessageLength, ErrValidation)
	}
	return nil
}
