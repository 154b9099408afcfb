package gemini

import (
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/fwojciec/ponder"
	"google.golang.org/genai"
)

// stream implements [ponder.Stream] by wrapping the genai SDK's streaming
// iterator.
type stream struct {
	pull  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	model string

	mu       sync.Mutex
	state    ponder.StreamState
	err      error
	pending  []ponder.Event
	thinking bool // inside an open <think> region
	pulling  bool // a pull is in flight outside the lock
	version  string
	stopOnce sync.Once
}

// Interface compliance check.
var _ ponder.Stream = (*stream)(nil)

// NewStream wraps a genai response iterator. model is reported on the end
// event when the API does not name a model version.
func NewStream(model string, seq iter.Seq2[*genai.GenerateContentResponse, error]) ponder.Stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		pull:  next,
		stop:  stop,
		model: model,
		state: ponder.StreamStateNew,
	}
}

// Next returns the next event. Thought text is emitted inside a <think>
// region, followed by the answer text and a final end event.
func (s *stream) Next() (ponder.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			return evt, nil
		}
		switch s.state {
		case ponder.StreamStateComplete:
			return nil, io.EOF
		case ponder.StreamStateError:
			return nil, s.err
		case ponder.StreamStateClosed:
			return nil, fmt.Errorf("gemini: %w", ponder.ErrStreamClosed)
		}

		// The iterator may block on the network; Close must not wait for it.
		s.pulling = true
		s.mu.Unlock()
		resp, err, ok := s.pull()
		s.mu.Lock()
		s.pulling = false

		if s.state == ponder.StreamStateClosed {
			s.stopOnce.Do(s.stop)
			continue
		}
		if !ok {
			s.finish()
			continue
		}
		if err != nil {
			s.state = ponder.StreamStateError
			s.err = fmt.Errorf("gemini: %w: %w", ponder.ErrConnection, err)
			return nil, s.err
		}
		s.state = ponder.StreamStateStreaming
		s.process(resp)
	}
}

func (s *stream) process(resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	if resp.ModelVersion != "" {
		s.version = resp.ModelVersion
	}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				s.processPart(part)
			}
		}
		switch cand.FinishReason {
		case "", genai.FinishReasonStop, genai.FinishReasonMaxTokens:
		default:
			s.pending = append(s.pending, ponder.EventError{Message: "generation stopped: " + string(cand.FinishReason)})
			s.state = ponder.StreamStateComplete
			return
		}
	}
}

func (s *stream) processPart(part *genai.Part) {
	if part == nil || part.Text == "" {
		return
	}
	text := part.Text
	switch {
	case part.Thought && !s.thinking:
		s.thinking = true
		text = ponder.ThinkStart + text
	case !part.Thought && s.thinking:
		s.thinking = false
		text = ponder.ThinkEnd + text
	}
	s.pending = append(s.pending, ponder.EventChunk{Text: text})
}

// finish closes an open reasoning region and queues the end event.
func (s *stream) finish() {
	if s.thinking {
		s.thinking = false
		s.pending = append(s.pending, ponder.EventChunk{Text: ponder.ThinkEnd})
	}
	model := s.version
	if model == "" {
		model = s.model
	}
	s.pending = append(s.pending, ponder.EventEnd{Model: model})
	s.state = ponder.StreamStateComplete
}

func (s *stream) State() ponder.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the iterator. It is safe to call more than once and from a
// goroutine other than the one calling Next.
func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ponder.StreamStateComplete && s.state != ponder.StreamStateError {
		s.state = ponder.StreamStateClosed
	}
	s.pending = nil
	if !s.pulling {
		s.stopOnce.Do(s.stop)
	}
	return nil
}
