package ponder

import "context"

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving events.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

func (s StreamState) String() string {
	switch s {
	case StreamStateNew:
		return "new"
	case StreamStateStreaming:
		return "streaming"
	case StreamStateComplete:
		return "complete"
	case StreamStateError:
		return "error"
	case StreamStateClosed:
		return "closed"
	}
	return "unknown"
}

// Stream uses a pull-based iterator pattern over one server-push connection.
// Next returns io.EOF after the terminal end event. Any other error is a
// transport failure and is terminal. Close may be called from any goroutine
// and unblocks a pending Next.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Close() error
}

// Client opens streaming chat connections against a backend.
type Client interface {
	Open(ctx context.Context, req Request) (Stream, error)
}
