package ponder

// Event is a sealed interface representing a streaming event delivered on
// an open session. Transport errors come from Next()'s error return, not
// from events. The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventChunk carries one raw text fragment of the model output. Fragments
// may split a delimiter token at any byte position.
type EventChunk struct {
	Text string
}

func (EventChunk) event() {}

// EventSources carries a citation batch. A later batch replaces an earlier one.
type EventSources struct {
	Citations []Citation
}

func (EventSources) event() {}

// EventEnd signals normal completion of the response.
type EventEnd struct {
	Model string
}

func (EventEnd) event() {}

// EventError is an application-level error reported in-band by the backend.
// It is terminal for the session.
type EventError struct {
	Message string
}

func (EventError) event() {}

// EventMalformed reports a payload that could not be decoded. It is not
// terminal; the session stays live.
type EventMalformed struct {
	Type string // SSE event name, "message" for the default channel
	Data string
	Err  error
}

func (EventMalformed) event() {}

// Interface compliance checks.
var (
	_ Event = EventChunk{}
	_ Event = EventSources{}
	_ Event = EventEnd{}
	_ Event = EventError{}
	_ Event = EventMalformed{}
)
