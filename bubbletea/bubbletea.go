// Package bubbletea provides the Bubble Tea chat TUI.
//
// The model is the single host loop for streaming sessions: stream events,
// open results and typesetting completions all arrive as messages tagged
// with the session they belong to, and the session decides whether they
// still apply.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ponder"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown: when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StreamOpenedMsg reports the result of opening a session's stream.
type StreamOpenedMsg struct {
	Session *ponder.Session
	Stream  ponder.Stream
	Cancel  context.CancelFunc
	Err     error
}

// StreamEventMsg delivers one stream event to the model.
type StreamEventMsg struct {
	Session *ponder.Session
	Event   ponder.Event
}

// StreamDoneMsg signals that a session's stream stopped yielding events.
type StreamDoneMsg struct {
	Session *ponder.Session
	Err     error
}

// TypesetDoneMsg carries the result of a typesetting pass.
type TypesetDoneMsg struct {
	Session *ponder.Session
	Job     ponder.TypesetJob
	Result  string
	Err     error
}

// FilesMsg carries a document listing.
type FilesMsg struct {
	Files []ponder.File
	Err   error
}

// ResetDoneMsg signals that the backend conversation was reset.
type ResetDoneMsg struct {
	Err error
}

func openStream(client ponder.Client, s *ponder.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		stream, err := client.Open(ctx, s.Request())
		if err != nil {
			cancel()
			return StreamOpenedMsg{Session: s, Err: err}
		}
		return StreamOpenedMsg{Session: s, Stream: stream, Cancel: cancel}
	}
}

// nextEvent reads one event. Reading one event per command keeps events
// in arrival order.
func nextEvent(s *ponder.Session, stream ponder.Stream) tea.Cmd {
	return func() tea.Msg {
		evt, err := stream.Next()
		if err != nil {
			return StreamDoneMsg{Session: s, Err: err}
		}
		return StreamEventMsg{Session: s, Event: evt}
	}
}

func typeset(t ponder.Typesetter, s *ponder.Session, job ponder.TypesetJob) tea.Cmd {
	return func() tea.Msg {
		result, err := t.Typeset(context.Background(), job.Rendered)
		return TypesetDoneMsg{Session: s, Job: job, Result: result, Err: err}
	}
}

func listFiles(lib ponder.Library) tea.Cmd {
	return func() tea.Msg {
		files, err := lib.ListFiles(context.Background())
		return FilesMsg{Files: files, Err: err}
	}
}

func resetBackend(r ponder.Resetter) tea.Cmd {
	return func() tea.Msg {
		return ResetDoneMsg{Err: r.Reset(context.Background())}
	}
}
