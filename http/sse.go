package http

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one dispatched server-sent event.
type sseEvent struct {
	Type string // "" for the default message channel
	Data string
}

// sseReader parses the text/event-stream format. Lines may end in LF or
// CRLF; comments and unknown fields are skipped; multiple data lines are
// joined with newlines.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &sseReader{scanner: scanner}
}

// next blocks until a complete event is available. It returns io.EOF when
// the source ends, dispatching a final event that lacks its blank line.
func (r *sseReader) next() (sseEvent, error) {
	var (
		evt     sseEvent
		data    strings.Builder
		hasData bool
	)
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if hasData {
				evt.Data = data.String()
				return evt, nil
			}
			// Events without data are not dispatched.
			evt = sseEvent{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			evt.Type = value
		}
	}
	if err := r.scanner.Err(); err != nil {
		return sseEvent{}, err
	}
	if hasData {
		evt.Data = data.String()
		return evt, nil
	}
	return sseEvent{}, io.EOF
}
