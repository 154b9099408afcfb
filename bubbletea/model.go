package bubbletea

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fwojciec/ponder"
	"github.com/rivo/uniseg"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	lifecycle  *ponder.Lifecycle
	client     ponder.Client
	library    ponder.Library
	resetter   ponder.Resetter
	typesetter ponder.Typesetter
	logger     *slog.Logger
	theme      ponder.Theme
	styles     Styles
	spinner    spinner.Spinner

	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	// stream is the attached stream of the current session. Only the
	// current session is ever pumped.
	stream    ponder.Stream
	reasoning bool
	err       error
	ready     bool
}

// Option configures a Model.
type Option func(*Model)

// WithLibrary enables the document listing.
func WithLibrary(lib ponder.Library) Option {
	return func(m *Model) { m.library = lib }
}

// WithResetter makes the new-conversation key reset the backend history.
func WithResetter(r ponder.Resetter) Option {
	return func(m *Model) { m.resetter = r }
}

// WithTypesetter enables the math typesetting pass.
func WithTypesetter(t ponder.Typesetter) Option {
	return func(m *Model) { m.typesetter = t }
}

// WithTheme sets the color theme.
func WithTheme(theme ponder.Theme) Option {
	return func(m *Model) { m.theme = theme }
}

// WithReasoning sets the initial reasoning mode.
func WithReasoning(on bool) Option {
	return func(m *Model) { m.reasoning = on }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// WithSpinner sets the placeholder animation.
func WithSpinner(s spinner.Spinner) Option {
	return func(m *Model) { m.spinner = s }
}

// New creates a Model that starts sessions through lc and opens their
// streams with client.
func New(lc *ponder.Lifecycle, client ponder.Client, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = ponder.MaxMessageLength

	m := Model{
		Input:      ti,
		lifecycle:  lc,
		client:     client,
		logger:     slog.New(slog.DiscardHandler),
		theme:      ponder.DefaultTheme(),
		spinner:    spinner.Dot,
		blockFocus: -1,
	}
	for _, o := range opts {
		o(&m)
	}
	m.styles = NewStyles(m.theme)
	return m
}

// Current returns the session of the latest submission, or nil.
func (m Model) Current() *ponder.Session { return m.lifecycle.Current() }

// Live reports whether the current session is still streaming.
func (m Model) Live() bool {
	s := m.lifecycle.Current()
	return s != nil && !s.Closed()
}

// Reasoning reports whether new submissions request reasoning.
func (m Model) Reasoning() bool { return m.reasoning }

// Err returns the last submission or side-action error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamOpenedMsg:
		return m.handleOpened(msg)

	case StreamEventMsg:
		return m.handleEvent(msg)

	case StreamDoneMsg:
		msg.Session.HandleStreamDone(msg.Err)
		if m.lifecycle.Owns(msg.Session) {
			m.stream = nil
		}
		return m.refresh(), nil

	case TypesetDoneMsg:
		if msg.Err != nil {
			m.logger.Warn("typeset failed", "session", msg.Job.SessionID, "error", msg.Err)
			return m, nil
		}
		if msg.Session.ApplyTypeset(msg.Job, msg.Result) {
			m = m.refresh()
		}
		return m, nil

	case FilesMsg:
		if msg.Err != nil {
			m.blocks = append(m.blocks, NewErrorBlock(fmt.Errorf("list files: %w", msg.Err), m.styles))
		} else {
			m.blocks = append(m.blocks, NewFilesBlock(msg.Files, m.styles))
		}
		return m.refresh(), nil

	case ResetDoneMsg:
		if msg.Err != nil {
			m.blocks = append(m.blocks, NewErrorBlock(fmt.Errorf("reset: %w", msg.Err), m.styles))
			return m.refresh(), nil
		}
		return m, nil

	case spinner.TickMsg:
		for i, block := range m.blocks {
			if _, ok := block.(*ResponseBlock); !ok {
				continue
			}
			var cmd tea.Cmd
			m.blocks[i], cmd = block.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Viewport.SetContent(m.renderContent())
		return m, tea.Batch(cmds...)
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	// Output area.
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")

	// Status line.
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	// Input area.
	b.WriteString(m.Input.View())

	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputH-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width

	// Re-render every response at the new width. Only the current session
	// sets the width of new ones. Past sessions reflow but are not typeset
	// again since they no longer accept typesetting results.
	var cmds []tea.Cmd
	current := m.lifecycle.Current()
	if job := m.lifecycle.Resize(msg.Width); job != nil {
		cmds = append(cmds, m.typesetCmd(current, *job))
	}
	for _, block := range m.blocks {
		rb, ok := block.(*ResponseBlock)
		if !ok || rb.Session() == current {
			continue
		}
		if job := rb.Session().Resize(msg.Width); job != nil && !rb.Session().Abandoned() {
			cmds = append(cmds, m.typesetCmd(rb.Session(), *job))
		}
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.Live() {
			if err := m.lifecycle.Current().Close(); err != nil {
				m.logger.Debug("close on interrupt", "error", err)
			}
			m.stream = nil
			return m.refresh(), nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyCtrlR:
		m.reasoning = !m.reasoning
		return m, nil

	case tea.KeyCtrlN:
		return m.resetConversation()

	case tea.KeyCtrlF:
		if m.library == nil {
			m.blocks = append(m.blocks, NewErrorBlock(errors.New("document listing is not available for this backend"), m.styles))
			return m.refresh(), nil
		}
		return m, listFiles(m.library)

	case tea.KeyTab:
		if m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		m = m.cycleFocusPrev()
		m.Viewport.SetContent(m.renderContent())
		return m, nil
	}

	// Pass keys to both the input (for typing) and the viewport (for
	// scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if msg.Type != tea.KeyRunes && msg.Type != tea.KeySpace {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	req := ponder.Request{Message: text, Reasoning: m.reasoning}
	s, err := m.lifecycle.Submit(req)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.Input.SetValue("")
	m.stream = nil

	block := NewResponseBlock(s, m.spinner, m.styles)
	m.blocks = append(m.blocks, NewUserMessageBlock(text, req.Reasoning, m.styles), block)
	m = m.updateBlockFocus()
	m = m.refresh()

	return m, tea.Batch(openStream(m.client, s), block.Tick)
}

func (m Model) resetConversation() (tea.Model, tea.Cmd) {
	m.lifecycle.Reset()
	m.stream = nil
	m.blocks = nil
	m.blockFocus = -1
	m.err = nil
	m = m.refresh()
	if m.resetter == nil {
		return m, nil
	}
	return m, resetBackend(m.resetter)
}

func (m Model) handleOpened(msg StreamOpenedMsg) (tea.Model, tea.Cmd) {
	s := msg.Session
	if msg.Err != nil {
		s.FailOpen(msg.Err)
		return m.refresh(), nil
	}
	if !s.Attach(msg.Stream, msg.Cancel) {
		// Superseded while connecting.
		return m, nil
	}
	m.stream = msg.Stream
	return m.refresh(), nextEvent(s, msg.Stream)
}

func (m Model) handleEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	s := msg.Session
	var cmds []tea.Cmd
	if job := s.HandleEvent(msg.Event); job != nil {
		cmds = append(cmds, m.typesetCmd(s, *job))
	}
	if m.lifecycle.Owns(s) && m.stream != nil {
		if s.Closed() {
			m.stream = nil
		} else {
			cmds = append(cmds, nextEvent(s, m.stream))
		}
	}
	m = m.updateBlockFocus()
	return m.refresh(), tea.Batch(cmds...)
}

func (m Model) typesetCmd(s *ponder.Session, job ponder.TypesetJob) tea.Cmd {
	if m.typesetter == nil {
		return nil
	}
	return typeset(m.typesetter, s, job)
}

func (m Model) refresh() Model {
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// updateBlockFocus scans backwards to find the last collapsible block.
// Only the focused block responds to Tab. ShiftTab cycles to the previous
// collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		if isCollapsible(m.blocks[i]) {
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	if len(m.blocks) == 0 {
		return m
	}
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		if isCollapsible(m.blocks[idx]) {
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func isCollapsible(b MessageBlock) bool {
	rb, ok := b.(*ResponseBlock)
	return ok && rb.Collapsible()
}

func (m Model) statusLine() string {
	count := uniseg.GraphemeClusterCount(m.Input.Value())
	counterStyle := m.styles.Muted
	if count > ponder.MaxMessageLength*9/10 {
		counterStyle = m.styles.Warning
	}
	counter := counterStyle.Render(fmt.Sprintf("%d/%d", count, ponder.MaxMessageLength))

	var left string
	switch {
	case m.err != nil:
		left = m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	default:
		mode := "off"
		if m.reasoning {
			mode = "on"
		}
		quit := "Ctrl+C quit"
		if m.Live() {
			quit = "Ctrl+C stop"
		}
		left = m.styles.Muted.Render("Enter to send · Ctrl+R reasoning " + mode + " · Ctrl+N new · Ctrl+F files · " + quit)
	}

	width := m.Viewport.Width
	gap := width - lipgloss.Width(left) - lipgloss.Width(counter)
	if gap < 1 {
		left = ansi.Truncate(left, max(width-lipgloss.Width(counter)-1, 0), "…")
		gap = max(width-lipgloss.Width(left)-lipgloss.Width(counter), 1)
	}
	return left + strings.Repeat(" ", gap) + counter
}
