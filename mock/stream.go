package mock

import (
	"io"
	"sync"

	"github.com/fwojciec/ponder"
)

// Interface compliance check.
var _ ponder.Stream = (*Stream)(nil)

// Stream is a test double for ponder.Stream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. CloseFn and StateFn are nil-safe (no-op and zero
// value) because test code commonly calls defer stream.Close() and these
// methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (ponder.Event, error)
	StateFn func() ponder.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (ponder.Event, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() ponder.StreamState {
	if s.StateFn == nil {
		return ponder.StreamStateNew
	}
	return s.StateFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Script is a Stream that replays a fixed list of events and then returns
// End, or io.EOF when End is nil. It counts Close calls and is safe to close
// from another goroutine.
type Script struct {
	Events []ponder.Event
	End    error

	mu     sync.Mutex
	pos    int
	closes int
}

// Interface compliance check.
var _ ponder.Stream = (*Script)(nil)

// Next returns the next scripted event.
func (s *Script) Next() (ponder.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return nil, ponder.ErrStreamClosed
	}
	if s.pos < len(s.Events) {
		evt := s.Events[s.pos]
		s.pos++
		return evt, nil
	}
	if s.End != nil {
		return nil, s.End
	}
	return nil, io.EOF
}

// State reports the replay position as a stream state.
func (s *Script) State() ponder.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closes > 0:
		return ponder.StreamStateClosed
	case s.pos == 0:
		return ponder.StreamStateNew
	case s.pos < len(s.Events):
		return ponder.StreamStateStreaming
	case s.End != nil:
		return ponder.StreamStateError
	}
	return ponder.StreamStateComplete
}

// Close records the call.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closes returns how many times Close was called.
func (s *Script) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}
