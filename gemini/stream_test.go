package gemini_test

import (
	"errors"
	"io"
	"testing"

	"github.com/fwojciec/ponder"
	"github.com/fwojciec/ponder/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// mockChunks returns a genai-style streaming iterator from pre-built chunks,
// optionally failing with err after the last chunk.
func mockChunks(chunks []*genai.GenerateContentResponse, err error) func(func(*genai.GenerateContentResponse, error) bool) {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

func response(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func collectStreamEvents(t *testing.T, s ponder.Stream) []ponder.Event {
	t.Helper()
	var events []ponder.Event
	for {
		evt, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
	return events
}

func TestStream_TextOnly(t *testing.T) {
	t.Parallel()
	chunks := []*genai.GenerateContentResponse{
		response(&genai.Part{Text: "Hello"}),
		{
			ModelVersion: "gemini-2.5-flash-001",
			Candidates: []*genai.Candidate{{
				Content:      &genai.Content{Parts: []*genai.Part{{Text: " world"}}},
				FinishReason: genai.FinishReasonStop,
			}},
		},
	}
	s := gemini.NewStream("gemini-2.5-flash", mockChunks(chunks, nil))
	events := collectStreamEvents(t, s)

	assert.Equal(t, []ponder.Event{
		ponder.EventChunk{Text: "Hello"},
		ponder.EventChunk{Text: " world"},
		ponder.EventEnd{Model: "gemini-2.5-flash-001"},
	}, events)
	assert.Equal(t, ponder.StreamStateComplete, s.State())
}

func TestStream_ThoughtsBecomeThinkRegion(t *testing.T) {
	t.Parallel()
	chunks := []*genai.GenerateContentResponse{
		response(&genai.Part{Text: "step one, ", Thought: true}),
		response(&genai.Part{Text: "step two", Thought: true}, &genai.Part{Text: "The answer."}),
	}
	s := gemini.NewStream("pro", mockChunks(chunks, nil))
	events := collectStreamEvents(t, s)

	require.Len(t, events, 4)
	assert.Equal(t, ponder.EventEnd{Model: "pro"}, events[3])

	var text string
	for _, evt := range events[:3] {
		text += evt.(ponder.EventChunk).Text
	}
	seg := ponder.Segment(text)
	assert.Equal(t, "step one, step two", seg.Reasoning)
	assert.Equal(t, "The answer.", seg.Answer)
	assert.True(t, seg.ReasoningComplete)
}

func TestStream_UnclosedThoughtIsClosedAtEnd(t *testing.T) {
	t.Parallel()
	s := gemini.NewStream("pro", mockChunks([]*genai.GenerateContentResponse{
		response(&genai.Part{Text: "only thinking", Thought: true}),
	}, nil))
	events := collectStreamEvents(t, s)
	require.Len(t, events, 3)
	assert.Equal(t, ponder.EventChunk{Text: "</think>"}, events[1])
}

func TestStream_BlockedResponse(t *testing.T) {
	t.Parallel()
	s := gemini.NewStream("m", mockChunks([]*genai.GenerateContentResponse{{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}}, nil))
	events := collectStreamEvents(t, s)
	require.Len(t, events, 1)
	assert.Equal(t, ponder.EventError{Message: "generation stopped: SAFETY"}, events[0])
}

func TestStream_IteratorError(t *testing.T) {
	t.Parallel()
	cause := errors.New("unexpected EOF")
	s := gemini.NewStream("m", mockChunks([]*genai.GenerateContentResponse{
		response(&genai.Part{Text: "partial"}),
	}, cause))

	evt, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, ponder.EventChunk{Text: "partial"}, evt)

	_, err = s.Next()
	assert.ErrorIs(t, err, ponder.ErrConnection)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ponder.StreamStateError, s.State())

	_, err = s.Next()
	assert.ErrorIs(t, err, ponder.ErrConnection, "terminal error is sticky")
}

func TestStream_Close(t *testing.T) {
	t.Parallel()
	s := gemini.NewStream("m", mockChunks([]*genai.GenerateContentResponse{
		response(&genai.Part{Text: "a"}),
		response(&genai.Part{Text: "b"}),
	}, nil))
	_, err := s.Next()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, ponder.StreamStateClosed, s.State())

	_, err = s.Next()
	assert.ErrorIs(t, err, ponder.ErrStreamClosed)
}
