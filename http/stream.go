package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fwojciec/ponder"
	"github.com/fwojciec/ponder/json"
)

// stream implements [ponder.Stream] over a text/event-stream response body.
type stream struct {
	body   io.ReadCloser
	reader *sseReader
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu        sync.Mutex
	state     ponder.StreamState
	err       error // terminal error, if any
	closeOnce sync.Once
	closeErr  error
}

// Interface compliance check.
var _ ponder.Stream = (*stream)(nil)

func newStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, logger *slog.Logger) *stream {
	return &stream{
		body:   body,
		reader: newSSEReader(body),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		state:  ponder.StreamStateNew,
	}
}

// Next reads the next semantic event from the SSE stream. It returns io.EOF
// after the end event. A stream that stops before the end event fails with
// an error wrapping ponder.ErrConnection.
func (s *stream) Next() (ponder.Event, error) {
	if err := s.terminalErr(); err != nil {
		return nil, err
	}
	for {
		raw, readErr := s.reader.next()

		s.mu.Lock()
		if s.state == ponder.StreamStateClosed {
			s.mu.Unlock()
			return nil, fmt.Errorf("http: %w", ponder.ErrStreamClosed)
		}
		if readErr != nil {
			s.terminate(readErr)
			err := s.err
			s.mu.Unlock()
			return nil, err
		}
		s.state = ponder.StreamStateStreaming
		evt := s.processEvent(raw)
		if _, ok := evt.(ponder.EventEnd); ok {
			s.state = ponder.StreamStateComplete
			s.cancel()
		}
		s.mu.Unlock()

		if evt != nil {
			return evt, nil
		}
		// Unknown event type, keep reading.
	}
}

func (s *stream) terminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case ponder.StreamStateComplete:
		return io.EOF
	case ponder.StreamStateError:
		return s.err
	case ponder.StreamStateClosed:
		return fmt.Errorf("http: %w", ponder.ErrStreamClosed)
	}
	return nil
}

// State returns the current stream state.
func (s *stream) State() ponder.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close closes the response body. It may be called from another goroutine
// to unblock a pending Next, and more than once.
func (s *stream) Close() error {
	s.mu.Lock()
	if s.state != ponder.StreamStateComplete && s.state != ponder.StreamStateError {
		s.state = ponder.StreamStateClosed
	}
	s.mu.Unlock()
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// terminate records a terminal read error. Callers hold s.mu.
func (s *stream) terminate(err error) {
	s.state = ponder.StreamStateError
	defer s.cancel()
	switch {
	case errors.Is(err, io.EOF):
		// A normal stream ends with the end event before we get here.
		s.err = fmt.Errorf("http: %w: unexpected end of stream", ponder.ErrConnection)
	case s.ctx.Err() != nil:
		s.err = fmt.Errorf("http: %w: %w", ponder.ErrConnection, s.ctx.Err())
	default:
		s.err = fmt.Errorf("http: %w: %w", ponder.ErrConnection, err)
	}
}

// processEvent maps an SSE event to a ponder.Event. Payloads that fail to
// decode become EventMalformed, except on the end channel, which still ends
// the stream.
func (s *stream) processEvent(raw sseEvent) ponder.Event {
	data := []byte(raw.Data)
	switch raw.Type {
	case "", "message":
		evt, err := json.DecodeMessage(data)
		if err != nil {
			return ponder.EventMalformed{Type: "message", Data: raw.Data, Err: err}
		}
		return evt
	case "sources":
		evt, err := json.DecodeSources(data)
		if err != nil {
			return ponder.EventMalformed{Type: raw.Type, Data: raw.Data, Err: err}
		}
		return evt
	case "end":
		evt, err := json.DecodeEnd(data)
		if err != nil {
			s.logger.Warn("malformed end event", "data", raw.Data, "error", err)
		}
		return evt
	case "error":
		evt, err := json.DecodeError(data)
		if err != nil {
			return ponder.EventError{Message: strings.TrimSpace(raw.Data)}
		}
		return evt
	}
	s.logger.Debug("ignoring event", "type", raw.Type)
	return nil
}
