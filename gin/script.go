package gin

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Script describes how the fixture backend answers.
type Script struct {
	Model          string        `toml:"model"`
	ReasoningModel string        `toml:"reasoning_model"`
	Delay          time.Duration `toml:"delay"`
	FileBaseURL    string        `toml:"file_base_url"`
	Unavailable    bool          `toml:"unavailable"`
	Files          []File        `toml:"files"`
	Replies        []Reply       `toml:"reply"`
}

// File is a document the fixture store starts with.
type File struct {
	Name string `toml:"name"`
	Size int64  `toml:"size"`
}

// Source is one citation of a reply.
type Source struct {
	Filename string `toml:"filename"`
	URL      string `toml:"url"`
}

// Reply is a scripted answer. The first reply whose Match is contained in
// the message (case-insensitively) is used; an empty Match matches anything.
type Reply struct {
	Match     string   `toml:"match"`
	Reasoning []string `toml:"reasoning"`
	Chunks    []string `toml:"chunks"`
	Sources   []Source `toml:"sources"`
	Error     string   `toml:"error"`
	Raw       []string `toml:"raw"`
	Drop      bool     `toml:"drop"`
}

// DefaultScript is used when no script file is given.
const DefaultScript = `
model = "fixture"
reasoning_model = "fixture-reasoning"
delay = "40ms"

[[files]]
name = "handbook.pdf"
size = 1048576

[[reply]]
match = "math"
reasoning = ["The user wants ", "a formula. ", "Euler fits."]
chunks = ["Euler's identity: ", "$e^{i\\pi} + 1 = 0$", ".\n\nAlso ", "$\\frac{1}{2}$."]

[[reply]]
match = "fail"
error = "An error occurred during response generation."

[[reply]]
reasoning = ["Looking up ", "the documents."]
chunks = ["This is a **scripted** ", "answer from the ", "fixture backend."]
sources = [{ filename = "handbook.pdf", url = "https://example.com/docs/handbook.pdf" }]
`

// ParseScript decodes a TOML script. Unknown keys are an error.
func ParseScript(data string) (Script, error) {
	var s Script
	md, err := toml.Decode(data, &s)
	if err != nil {
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Script{}, fmt.Errorf("parse script: unknown keys: %s", strings.Join(keys, ", "))
	}
	return s, nil
}

// LoadScript reads a TOML script from path.
func LoadScript(path string) (Script, error) {
	var s Script
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return Script{}, fmt.Errorf("load script: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Script{}, fmt.Errorf("load script %s: unknown key %s", path, undecoded[0])
	}
	return s, nil
}

func (s Script) match(message string) Reply {
	lower := strings.ToLower(message)
	for _, r := range s.Replies {
		if r.Match == "" || strings.Contains(lower, strings.ToLower(r.Match)) {
			return r
		}
	}
	return Reply{Chunks: []string{"No scripted reply for: " + message}}
}

func (s Script) model(reasoning bool) string {
	if reasoning {
		if s.ReasoningModel != "" {
			return s.ReasoningModel
		}
		return "fixture-reasoning"
	}
	if s.Model != "" {
		return s.Model
	}
	return "fixture"
}
