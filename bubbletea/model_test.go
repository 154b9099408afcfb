package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/ponder"
	bt "github.com/fwojciec/ponder/bubbletea"
	pondergin "github.com/fwojciec/ponder/gin"
	"github.com/fwojciec/ponder/goldmark"
	ponderhttp "github.com/fwojciec/ponder/http"
	"github.com/fwojciec/ponder/latex"
	"github.com/fwojciec/ponder/mock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestNew(t *testing.T) {
	t.Parallel()

	m := bt.New(ponder.NewLifecycle(&mock.Renderer{}), nopClient())
	assert.False(t, m.Live())
	assert.False(t, m.Reasoning())
	assert.Nil(t, m.Current())
	assert.NoError(t, m.Err())
	assert.Equal(t, "Initializing...", m.View())

	m = bt.New(ponder.NewLifecycle(&mock.Renderer{}), nopClient(), bt.WithReasoning(true))
	assert.True(t, m.Reasoning())
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("window size initializes viewport", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		assert.Equal(t, 80, m.Viewport.Width)
		assert.Equal(t, 20, m.Viewport.Height) // 24 - 1 - 1 - 2
		assert.Contains(t, m.View(), "Enter to send")

		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
		assert.Equal(t, 120, m.Viewport.Width)
		assert.Equal(t, 36, m.Viewport.Height)
	})

	t.Run("ctrl+c quits when idle", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})

	t.Run("enter with blank input does nothing", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m.Input.SetValue("   ")
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Nil(t, cmd)
		assert.Nil(t, updated.(bt.Model).Current())
	})

	t.Run("submit shows the message and a placeholder", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "  what is rag?  ")
		assert.Equal(t, "what is rag?", s.Request().Message)
		assert.False(t, s.Request().Reasoning)
		assert.Empty(t, m.Input.Value())

		content := bt.RenderContent(m)
		assert.Contains(t, content, "> what is rag?")
		assert.NotContains(t, content, "[reasoning]")
		assert.Contains(t, content, "Generating response...")
	})

	t.Run("ctrl+r toggles reasoning for the next submission", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		assert.True(t, m.Reasoning())
		m, s := submit(t, m, "why?")
		assert.True(t, s.Request().Reasoning)
		assert.Contains(t, bt.RenderContent(m), "[reasoning]")

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		assert.False(t, m.Reasoning())
	})

	t.Run("opened stream is pumped one event at a time", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		script := &mock.Script{Events: []ponder.Event{
			ponder.EventChunk{Text: "one"},
			ponder.EventChunk{Text: "two"},
		}}
		updated, cmd := m.Update(bt.StreamOpenedMsg{Session: s, Stream: script})
		m = updated.(bt.Model)
		assert.True(t, m.Live())
		require.NotNil(t, cmd)

		msg := cmd()
		evt, ok := msg.(bt.StreamEventMsg)
		require.True(t, ok)
		assert.Same(t, s, evt.Session)
		assert.Equal(t, ponder.EventChunk{Text: "one"}, evt.Event)

		updated, cmd = m.Update(msg)
		m = updated.(bt.Model)
		assert.Contains(t, bt.RenderContent(m), "one")
		require.NotNil(t, cmd)
		assert.Equal(t, ponder.EventChunk{Text: "two"}, cmd().(bt.StreamEventMsg).Event)
	})

	t.Run("reasoning and answer render as they stream", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = attach(t, m, s, &mock.Script{})

		m = send(t, m, s, ponder.EventChunk{Text: "<think>check the "})
		content := bt.RenderContent(m)
		assert.Contains(t, content, "▼ Thinking Process...")
		assert.Contains(t, content, "check the")
		assert.NotContains(t, content, "Generating response...")

		m = send(t, m, s, ponder.EventChunk{Text: "docs</think>The answer."})
		content = bt.RenderContent(m)
		assert.NotContains(t, content, "Thinking Process...")
		assert.Contains(t, content, "▼ Thinking Process")
		assert.Contains(t, content, "check the docs")
		assert.Contains(t, content, "The answer.")

		m = send(t, m, s, ponder.EventEnd{Model: "fixture"})
		content = bt.RenderContent(m)
		assert.Contains(t, content, "Completed")
		assert.Contains(t, content, "fixture")
		assert.False(t, m.Live())
		assert.NoError(t, s.Err())
	})

	t.Run("end stops pumping the stream", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = attach(t, m, s, &mock.Script{})
		_, cmd := m.Update(bt.StreamEventMsg{Session: s, Event: ponder.EventEnd{}})
		assert.Nil(t, cmd)
	})

	t.Run("sources render as a list", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = send(t, m, s,
			ponder.EventSources{Citations: []ponder.Citation{
				ponder.NewCitation("handbook.pdf", "https://example.com/handbook.pdf"),
				ponder.NewCitation("", "local/notes.pptx"),
			}},
			ponder.EventChunk{Text: "answer"},
		)
		content := bt.RenderContent(m)
		assert.Contains(t, content, "Sources:")
		assert.Contains(t, content, "handbook.pdf")
		assert.Contains(t, content, "(https://example.com/handbook.pdf)")
		assert.Contains(t, content, "notes.pptx")
		assert.NotContains(t, content, "(#)")
	})

	t.Run("backend error shows inline", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = attach(t, m, s, &mock.Script{})
		m = send(t, m, s, ponder.EventError{Message: "vector store offline"})
		assert.Contains(t, bt.RenderContent(m), "Error: vector store offline")
		assert.False(t, m.Live())
		assert.ErrorIs(t, s.Err(), ponder.ErrBackend)
	})

	t.Run("open failure shows a connection error", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = updateModel(t, m, bt.StreamOpenedMsg{Session: s, Err: errors.New("refused")})
		content := bt.RenderContent(m)
		assert.Contains(t, content, "Connection error: refused")
		assert.NotContains(t, content, "Generating response...")
		assert.False(t, m.Live())
		assert.ErrorIs(t, s.Err(), ponder.ErrOpen)
	})

	t.Run("dropped stream after the first fragment shows a stream error", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = attach(t, m, s, &mock.Script{})
		m = send(t, m, s, ponder.EventChunk{Text: "partial"})
		m = updateModel(t, m, bt.StreamDoneMsg{Session: s, Err: io.EOF})
		content := bt.RenderContent(m)
		assert.Contains(t, content, "partial")
		assert.Contains(t, content, "[Stream Error]")
		assert.ErrorIs(t, s.Err(), ponder.ErrConnection)
	})

	t.Run("dropped stream before the first fragment shows a connection error", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = attach(t, m, s, &mock.Script{})
		m = updateModel(t, m, bt.StreamDoneMsg{Session: s, Err: io.EOF})
		content := bt.RenderContent(m)
		assert.Contains(t, content, "Connection error.")
		assert.NotContains(t, content, "Generating response...")
	})

	t.Run("malformed event replaces the placeholder", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = attach(t, m, s, &mock.Script{})
		m = send(t, m, s, ponder.EventMalformed{Type: "message", Data: "{"})
		content := bt.RenderContent(m)
		assert.Contains(t, content, "[Error processing stream data]")
		assert.NotContains(t, content, "Generating response...")
		assert.True(t, m.Live())
	})

	t.Run("new submission supersedes the live session", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, first := submit(t, m, "first")
		script := &mock.Script{}
		m = attach(t, m, first, script)

		m, second := submit(t, m, "second")
		assert.NotSame(t, first, second)
		assert.True(t, first.Abandoned())
		assert.Equal(t, 1, script.Closes())

		// Late events for the old session are inert and not pumped.
		updated, cmd := m.Update(bt.StreamEventMsg{Session: first, Event: ponder.EventChunk{Text: "late"}})
		m = updated.(bt.Model)
		assert.Nil(t, cmd)
		content := bt.RenderContent(m)
		assert.NotContains(t, content, "late")
		assert.Contains(t, content, "Stopped.")
		assert.Contains(t, content, "Generating response...")
	})

	t.Run("stream opened after supersede is released", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, first := submit(t, m, "first")
		m, _ = submit(t, m, "second")

		script := &mock.Script{}
		var cancelled atomic.Bool
		updated, cmd := m.Update(bt.StreamOpenedMsg{
			Session: first,
			Stream:  script,
			Cancel:  func() { cancelled.Store(true) },
		})
		assert.Nil(t, cmd)
		assert.Equal(t, 1, script.Closes())
		assert.True(t, cancelled.Load())
		assert.False(t, first.Live())
		assert.NotSame(t, first, updated.(bt.Model).Current())
	})

	t.Run("ctrl+c stops the live session", func(t *testing.T) {
		t.Parallel()

		m := initModelWithSize(t, 160, 24)
		m, s := submit(t, m, "hi")
		script := &mock.Script{}
		m = attach(t, m, s, script)
		assert.Contains(t, m.View(), "Ctrl+C stop")

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		m = updated.(bt.Model)
		assert.Nil(t, cmd)
		assert.Equal(t, 1, script.Closes())
		assert.True(t, s.Closed())
		assert.False(t, s.Abandoned())
		assert.False(t, m.Live())
		assert.Contains(t, bt.RenderContent(m), "Stopped.")
		assert.Contains(t, m.View(), "Ctrl+C quit")

		_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})

	t.Run("status line counts characters", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m.Input.SetValue("héllo")
		assert.Contains(t, m.View(), "5/1000")
	})
}

func TestModel_Typeset(t *testing.T) {
	t.Parallel()

	t.Run("only the latest render accepts a result", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = send(t, m, s, ponder.EventChunk{Text: "a"})
		stale := ponder.TypesetJob{SessionID: s.ID(), Version: s.Version(), Rendered: "a"}
		m = send(t, m, s, ponder.EventChunk{Text: "b"})
		latest := ponder.TypesetJob{SessionID: s.ID(), Version: s.Version(), Rendered: "ab"}

		m = updateModel(t, m, bt.TypesetDoneMsg{Session: s, Job: stale, Result: "STALE"})
		assert.NotContains(t, bt.RenderContent(m), "STALE")

		m = updateModel(t, m, bt.TypesetDoneMsg{Session: s, Job: latest, Result: "TYPESET"})
		assert.Contains(t, bt.RenderContent(m), "TYPESET")
	})

	t.Run("chunks schedule a typesetting pass", func(t *testing.T) {
		t.Parallel()

		ts := &mock.Typesetter{TypesetFn: func(_ context.Context, rendered string) (string, error) {
			return "<" + rendered + ">", nil
		}}
		m := initModel(t, bt.WithTypesetter(ts))
		m, s := submit(t, m, "hi")

		// No stream attached, so the typesetting pass is the only command.
		updated, cmd := m.Update(bt.StreamEventMsg{Session: s, Event: ponder.EventChunk{Text: "x"}})
		m = updated.(bt.Model)
		require.NotNil(t, cmd)
		done, ok := cmd().(bt.TypesetDoneMsg)
		require.True(t, ok)
		assert.Equal(t, "<x>", done.Result)

		m = updateModel(t, m, done)
		assert.Contains(t, bt.RenderContent(m), "<x>")
	})

	t.Run("failed pass keeps the untypeset render", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = send(t, m, s, ponder.EventChunk{Text: "plain"})
		job := ponder.TypesetJob{SessionID: s.ID(), Version: s.Version(), Rendered: "plain"}
		m = updateModel(t, m, bt.TypesetDoneMsg{Session: s, Job: job, Err: errors.New("boom")})
		assert.Contains(t, bt.RenderContent(m), "plain")
	})

	t.Run("resize re-renders at the new width", func(t *testing.T) {
		t.Parallel()

		r := &mock.Renderer{MarkupFn: func(src string, width int) string {
			return fmt.Sprintf("[%d]%s", width, src)
		}}
		m := initModelWithRenderer(t, r)
		m, s := submit(t, m, "hi")
		m = send(t, m, s, ponder.EventChunk{Text: "x"})
		assert.Contains(t, bt.RenderContent(m), "[80]x")

		m = updateModel(t, m, tea.WindowSizeMsg{Width: 100, Height: 24})
		assert.Contains(t, bt.RenderContent(m), "[100]x")
	})

	t.Run("resize reflows past responses", func(t *testing.T) {
		t.Parallel()

		r := &mock.Renderer{MarkupFn: func(src string, width int) string {
			return fmt.Sprintf("[%d]%s", width, src)
		}}
		m := initModelWithRenderer(t, r)
		m, first := submit(t, m, "one")
		m = send(t, m, first, ponder.EventChunk{Text: "x"}, ponder.EventEnd{})
		m, second := submit(t, m, "two")
		m = send(t, m, second, ponder.EventChunk{Text: "y"})
		require.True(t, first.Abandoned())

		m = updateModel(t, m, tea.WindowSizeMsg{Width: 100, Height: 24})
		content := bt.RenderContent(m)
		assert.Contains(t, content, "[100]x")
		assert.Contains(t, content, "[100]y")
		assert.NotContains(t, content, "[80]x")
	})
}

func TestModel_BlockToggle(t *testing.T) {
	t.Parallel()

	t.Run("tab collapses the focused reasoning region", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = send(t, m, s, ponder.EventChunk{Text: "<think>secret plan</think>answer"})
		require.Contains(t, bt.RenderContent(m), "secret plan")

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
		content := bt.RenderContent(m)
		assert.Contains(t, content, "▶ Thinking Process")
		assert.NotContains(t, content, "secret plan")
		assert.Contains(t, content, "answer")

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
		assert.Contains(t, bt.RenderContent(m), "secret plan")
	})

	t.Run("tab without reasoning does nothing", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, s := submit(t, m, "hi")
		m = send(t, m, s, ponder.EventChunk{Text: "answer"})
		before := bt.RenderContent(m)
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
		assert.Equal(t, before, bt.RenderContent(m))
	})

	t.Run("shift+tab moves focus to an earlier response", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, first := submit(t, m, "one")
		m = send(t, m, first, ponder.EventChunk{Text: "<think>first plan</think>a"})
		m, second := submit(t, m, "two")
		m = send(t, m, second, ponder.EventChunk{Text: "<think>second plan</think>b"})

		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
		content := bt.RenderContent(m)
		assert.NotContains(t, content, "first plan")
		assert.Contains(t, content, "second plan")
	})
}

func TestModel_SideActions(t *testing.T) {
	t.Parallel()

	t.Run("ctrl+n resets the conversation and the backend", func(t *testing.T) {
		t.Parallel()

		var resets atomic.Int32
		r := &mock.Resetter{ResetFn: func(context.Context) error {
			resets.Add(1)
			return nil
		}}
		m := initModel(t, bt.WithResetter(r))
		m, s := submit(t, m, "hi")
		script := &mock.Script{}
		m = attach(t, m, s, script)

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
		m = updated.(bt.Model)
		assert.Nil(t, m.Current())
		assert.True(t, s.Abandoned())
		assert.Equal(t, 1, script.Closes())
		assert.Empty(t, bt.RenderContent(m))

		require.NotNil(t, cmd)
		msg := cmd()
		assert.Equal(t, bt.ResetDoneMsg{}, msg)
		assert.Equal(t, int32(1), resets.Load())
		m = updateModel(t, m, msg)
		assert.Empty(t, bt.RenderContent(m))
	})

	t.Run("ctrl+n without a resetter only clears", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m, _ = submit(t, m, "hi")
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
		assert.Nil(t, cmd)
		assert.Empty(t, bt.RenderContent(updated.(bt.Model)))
	})

	t.Run("reset failure is shown", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m = updateModel(t, m, bt.ResetDoneMsg{Err: errors.New("boom")})
		assert.Contains(t, bt.RenderContent(m), "reset: boom")
	})

	t.Run("ctrl+f lists documents", func(t *testing.T) {
		t.Parallel()

		lib := &mock.Library{ListFilesFn: func(context.Context) ([]ponder.File, error) {
			return []ponder.File{{Name: "handbook.pdf", Size: 1536}}, nil
		}}
		m := initModel(t, bt.WithLibrary(lib))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
		require.NotNil(t, cmd)
		msg := cmd()
		require.IsType(t, bt.FilesMsg{}, msg)

		m = updateModel(t, m, msg)
		content := bt.RenderContent(m)
		assert.Contains(t, content, "Documents")
		assert.Contains(t, content, "handbook.pdf")
		assert.Contains(t, content, "1.5 KB")
	})

	t.Run("listing failure is shown", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		m = updateModel(t, m, bt.FilesMsg{Err: errors.New("not ready")})
		assert.Contains(t, bt.RenderContent(m), "list files: not ready")
	})

	t.Run("ctrl+f without a library explains", func(t *testing.T) {
		t.Parallel()

		m := initModel(t)
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
		assert.Nil(t, cmd)
		assert.Contains(t, bt.RenderContent(updated.(bt.Model)), "document listing is not available")
	})
}

func TestModel_Teatest(t *testing.T) {
	t.Parallel()

	t.Run("scripted stream renders to completion", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32
		client := &mock.Client{OpenFn: func(_ context.Context, req ponder.Request) (ponder.Stream, error) {
			requests.Add(1)
			return &mock.Script{Events: []ponder.Event{
				ponder.EventChunk{Text: "<think>check docs</think>"},
				ponder.EventChunk{Text: "The answer is 42."},
				ponder.EventSources{Citations: []ponder.Citation{ponder.NewCitation("guide.pdf", "")}},
				ponder.EventEnd{Model: "scripted"},
			}}, nil
		}}
		m := bt.New(ponder.NewLifecycle(&mock.Renderer{}), client)

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("The answer is 42.")) &&
				bytes.Contains(out, []byte("Completed"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)
		assert.False(t, final.Live())
		assert.NoError(t, final.Err())
		require.NotNil(t, final.Current())
		require.NotNil(t, final.Current().Completion())
		assert.Equal(t, "scripted", final.Current().Completion().Model)
		assert.Equal(t, int32(1), requests.Load())
	})

	t.Run("fixture backend with typeset math", func(t *testing.T) {
		t.Parallel()

		script, err := pondergin.ParseScript(pondergin.DefaultScript)
		require.NoError(t, err)
		script.Delay = 0
		srv := httptest.NewServer(pondergin.New(script))
		t.Cleanup(srv.Close)
		client := ponderhttp.New(srv.URL)

		theme := ponder.DefaultTheme()
		m := bt.New(
			ponder.NewLifecycle(goldmark.New(goldmark.WithTheme(theme))),
			client,
			bt.WithTheme(theme),
			bt.WithTypesetter(latex.New()),
			bt.WithLibrary(client),
			bt.WithResetter(client),
		)

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
		tm.Type("show me math")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("1/2")) &&
				bytes.Contains(out, []byte("Completed"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final := fm.(bt.Model)
		require.NotNil(t, final.Current())
		assert.NoError(t, final.Current().Err())
		assert.Equal(t, "fixture", final.Current().Completion().Model)
	})
}
