package ponder

import (
	"strings"
	"time"
)

// Citation is one retrieved document reference attached to a response.
type Citation struct {
	Name   string // display name
	Target string // link target, "#" when the URL is not navigable
	Key    string // raw URL, shown as a title
}

// NewCitation derives a display citation from a backend source entry.
// The name falls back to the last URL path segment, then to "?".
func NewCitation(filename, url string) Citation {
	name := filename
	if name == "" && url != "" {
		name = url[strings.LastIndex(url, "/")+1:]
	}
	if name == "" {
		name = "?"
	}
	target := "#"
	if strings.HasPrefix(url, "http") {
		target = url
	}
	return Citation{Name: name, Target: target, Key: url}
}

// Completion is the metadata recorded when a response ends normally.
type Completion struct {
	Model string
	At    time.Time
}
