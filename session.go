package ponder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// NoteKind classifies an inline annotation in an output region.
type NoteKind int

const (
	NoteError      NoteKind = iota // backend reported an error
	NoteConnection                 // transport failed to open or dropped
	NoteMalformed                  // an event payload could not be decoded
)

// Note is an inline annotation shown with a response.
type Note struct {
	Kind NoteKind
	Text string
}

// Note texts.
const (
	connectionErrorText = "Connection error."
	streamErrorText     = "[Stream Error]"
	malformedText       = "[Error processing stream data]"
)

// Output is the displayed state of one response. Reasoning holds the
// reasoning region rendered as plain text and Answer holds the rendered
// answer, replaced by its typeset form once a typesetting pass lands.
type Output struct {
	ID                string
	Request           Request
	Started           time.Time
	Pending           bool // placeholder shown, no fragment yet
	Reasoning         string
	HasReasoning      bool
	ReasoningComplete bool
	Answer            string
	Version           int
	Typeset           bool
	Citations         []Citation
	Notes             []Note
	Completion        *Completion
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithWidth sets the initial render width.
func WithWidth(width int) SessionOption {
	return func(s *Session) { s.width = width }
}

// WithLogger sets the logger for session lifecycle events.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithIDFunc sets the generator for session correlation ids.
func WithIDFunc(newID func() string) SessionOption {
	return func(s *Session) { s.newID = newID }
}

var sessionSeq atomic.Int64

func sequentialID() string {
	return "session-" + strconv.FormatInt(sessionSeq.Add(1), 10)
}

// Session owns one streaming exchange: the connection, the accumulated raw
// text, the side-channel state and the output region it renders into.
//
// Session is not safe for concurrent use. All methods are meant to be called
// from the host's single event loop; only the attached Stream is read from
// another goroutine.
type Session struct {
	id       string
	req      Request
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	width    int

	stream Stream
	cancel context.CancelFunc

	raw           strings.Builder
	seg           Segmentation
	out           Output
	firstFragment bool
	closed        bool
	abandoned     bool
	err           error
}

// NewSession creates a session for req with its output region in the
// placeholder state. The session is not live until a stream is attached.
func NewSession(req Request, renderer Renderer, opts ...SessionOption) *Session {
	s := &Session{
		req:      req,
		renderer: renderer,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		newID:    sequentialID,
		width:    80,
	}
	for _, o := range opts {
		o(s)
	}
	s.id = s.newID()
	s.logger = s.logger.With("session", s.id)
	s.out = Output{ID: s.id, Request: req, Started: s.now(), Pending: true}
	return s
}

// Open establishes the stream through client and attaches it. Open blocks
// until the backend answers; hosts that must not block call client.Open
// elsewhere and report the result with Attach or FailOpen.
func (s *Session) Open(ctx context.Context, client Client) error {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := client.Open(ctx, s.req)
	if err != nil {
		cancel()
		s.FailOpen(err)
		return s.err
	}
	s.Attach(stream, cancel)
	return nil
}

// Attach binds an opened stream to the session. cancel, if non-nil, is
// called when the session closes. When the session has already been closed
// the stream is released immediately and Attach reports false.
func (s *Session) Attach(stream Stream, cancel context.CancelFunc) bool {
	if s.closed {
		if cancel != nil {
			cancel()
		}
		_ = stream.Close()
		return false
	}
	s.stream = stream
	s.cancel = cancel
	s.logger.Debug("stream opened", "reasoning", s.req.Reasoning)
	return true
}

// FailOpen records that the stream could not be established. The session
// closes without ever becoming live.
func (s *Session) FailOpen(err error) {
	if s.closed {
		return
	}
	s.logger.Warn("stream open failed", "error", err)
	if errors.Is(err, ErrOpen) {
		s.err = err
	} else {
		s.err = fmt.Errorf("%w: %w", ErrOpen, err)
	}
	s.out.Pending = false
	s.out.Notes = append(s.out.Notes, Note{Kind: NoteConnection, Text: "Connection error: " + err.Error()})
	_ = s.Close()
}

// HandleEvent applies one stream event. Events arriving after the session
// has closed are ignored. A non-nil job asks the host to run a typesetting
// pass over the new render and report it back through ApplyTypeset.
func (s *Session) HandleEvent(evt Event) *TypesetJob {
	if s.closed {
		return nil
	}
	switch e := evt.(type) {
	case EventChunk:
		return s.onTextFragment(e.Text)
	case EventSources:
		s.out.Citations = slices.Clone(e.Citations)
		s.logger.Debug("sources received", "count", len(e.Citations))
	case EventEnd:
		return s.onEnd(e.Model)
	case EventError:
		s.logger.Warn("backend error", "message", e.Message)
		s.err = fmt.Errorf("%s: %w", e.Message, ErrBackend)
		s.out.Pending = false
		s.out.Notes = append(s.out.Notes, Note{Kind: NoteError, Text: "Error: " + e.Message})
		_ = s.Close()
	case EventMalformed:
		s.logger.Warn("malformed event", "type", e.Type, "data", e.Data, "error", e.Err)
		s.out.Pending = false
		s.out.Notes = append(s.out.Notes, Note{Kind: NoteMalformed, Text: malformedText})
	}
	return nil
}

func (s *Session) onTextFragment(text string) *TypesetJob {
	if text == "" {
		return nil
	}
	s.raw.WriteString(text)
	if !s.firstFragment {
		s.firstFragment = true
		s.out.Pending = false
	}
	s.seg = Segment(s.raw.String())
	return s.render()
}

func (s *Session) onEnd(model string) *TypesetJob {
	var job *TypesetJob
	if settled := s.seg.Settled(); settled != s.seg {
		s.seg = settled
		job = s.render()
	}
	s.out.Pending = false
	s.out.Completion = &Completion{Model: model, At: s.now()}
	s.logger.Debug("stream ended", "model", model, "version", s.out.Version)
	_ = s.Close()
	return job
}

// HandleStreamDone reports that the stream stopped yielding events, with the
// error Next returned. After the end event, a local close or an error event
// this is expected and ignored; otherwise the connection was lost.
func (s *Session) HandleStreamDone(err error) {
	if s.closed {
		return
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = ErrConnection
	}
	s.logger.Warn("stream dropped", "error", err)
	if errors.Is(err, ErrConnection) {
		s.err = err
	} else {
		s.err = fmt.Errorf("%w: %w", ErrConnection, err)
	}
	s.out.Pending = false
	text := streamErrorText
	if !s.firstFragment {
		text = connectionErrorText
	}
	s.out.Notes = append(s.out.Notes, Note{Kind: NoteConnection, Text: text})
	_ = s.Close()
}

// render re-renders both regions from the current segmentation and bumps the
// render version.
func (s *Session) render() *TypesetJob {
	s.out.Version++
	s.out.HasReasoning = s.seg.HasReasoning
	s.out.ReasoningComplete = s.seg.ReasoningComplete
	s.out.Reasoning = ""
	if s.seg.HasReasoning {
		s.out.Reasoning = s.renderer.Plain(s.seg.Reasoning, s.width)
	}
	s.out.Answer = ""
	if s.seg.Answer != "" {
		s.out.Answer = s.renderer.Markup(s.seg.Answer, s.width)
	}
	s.out.Typeset = false
	if s.out.Answer == "" {
		return nil
	}
	return &TypesetJob{SessionID: s.id, Version: s.out.Version, Rendered: s.out.Answer}
}

// ApplyTypeset installs the result of a typesetting pass if it still matches
// the latest render of this session. Results for an older render, another
// session or an abandoned session are discarded.
func (s *Session) ApplyTypeset(job TypesetJob, result string) bool {
	if s.abandoned || job.SessionID != s.id || job.Version != s.out.Version {
		s.logger.Debug("typeset discarded", "version", job.Version, "current", s.out.Version)
		return false
	}
	s.out.Answer = result
	s.out.Typeset = true
	return true
}

// Resize re-renders the output at a new width.
func (s *Session) Resize(width int) *TypesetJob {
	if width == s.width || width <= 0 {
		return nil
	}
	s.width = width
	if !s.firstFragment {
		return nil
	}
	return s.render()
}

// Close releases the connection. It is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.stream == nil {
		return nil
	}
	s.logger.Debug("stream closed", "state", s.stream.State())
	return s.stream.Close()
}

// Abandon closes the session and invalidates its output region: later
// events and typesetting results for it are ignored.
func (s *Session) Abandon() error {
	s.abandoned = true
	return s.Close()
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Request returns the submission this session answers.
func (s *Session) Request() Request { return s.req }

// Segmentation returns the current split of the accumulated text.
func (s *Session) Segmentation() Segmentation { return s.seg }

// Output returns a snapshot of the output region.
func (s *Session) Output() Output {
	out := s.out
	out.Citations = slices.Clone(s.out.Citations)
	out.Notes = slices.Clone(s.out.Notes)
	return out
}

// Version returns the render version of the output region.
func (s *Session) Version() int { return s.out.Version }

// Citations returns the citations of the latest sources event.
func (s *Session) Citations() []Citation { return slices.Clone(s.out.Citations) }

// Completion returns the completion metadata, or nil before the end event.
func (s *Session) Completion() *Completion { return s.out.Completion }

// Closed reports whether the connection has been released.
func (s *Session) Closed() bool { return s.closed }

// Abandoned reports whether the session was superseded or reset.
func (s *Session) Abandoned() bool { return s.abandoned }

// Live reports whether a stream is attached and still open.
func (s *Session) Live() bool { return s.stream != nil && !s.closed }

// Err returns the terminal failure, or nil after a normal end.
func (s *Session) Err() error { return s.err }
