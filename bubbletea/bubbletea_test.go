package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ponder"
	bt "github.com/fwojciec/ponder/bubbletea"
	"github.com/fwojciec/ponder/mock"
	"github.com/stretchr/testify/require"
)

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, opts ...bt.Option) bt.Model {
	t.Helper()
	return initModelWithRenderer(t, &mock.Renderer{}, opts...)
}

func initModelWithRenderer(t *testing.T, r ponder.Renderer, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(ponder.NewLifecycle(r), nopClient(), opts...)
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// submit types text and presses enter, returning the new session.
func submit(t *testing.T, m bt.Model, text string) (bt.Model, *ponder.Session) {
	t.Helper()
	m.Input.SetValue(text)
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.Current())
	return m, m.Current()
}

// attach delivers a successful open of stream for s.
func attach(t *testing.T, m bt.Model, s *ponder.Session, stream ponder.Stream) bt.Model {
	t.Helper()
	return updateModel(t, m, bt.StreamOpenedMsg{Session: s, Stream: stream})
}

func send(t *testing.T, m bt.Model, s *ponder.Session, evts ...ponder.Event) bt.Model {
	t.Helper()
	for _, e := range evts {
		m = updateModel(t, m, bt.StreamEventMsg{Session: s, Event: e})
	}
	return m
}

// nopClient never gets called by tests that deliver open results by hand.
func nopClient() *mock.Client {
	return &mock.Client{OpenFn: func(context.Context, ponder.Request) (ponder.Stream, error) {
		return &mock.Script{}, nil
	}}
}

func initModelWithSize(t *testing.T, width, height int, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(ponder.NewLifecycle(&mock.Renderer{}), nopClient(), opts...)
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}
