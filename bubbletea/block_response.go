package bubbletea

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/ponder"
)

var _ MessageBlock = (*ResponseBlock)(nil)

const (
	placeholderText = "Generating response..."
	stoppedText     = "Stopped."
)

// ResponseBlock renders the output region of one session: the placeholder
// until the first fragment, the collapsible reasoning region, the answer,
// inline notes, the sources block and the completion footer.
//
// The block reads the session on every View, so it always shows the latest
// render the session accepted.
type ResponseBlock struct {
	session   *ponder.Session
	spinner   spinner.Model
	collapsed bool
	styles    Styles
}

// NewResponseBlock creates a ResponseBlock for s.
func NewResponseBlock(s *ponder.Session, spin spinner.Spinner, styles Styles) *ResponseBlock {
	return &ResponseBlock{
		session: s,
		spinner: spinner.New(spinner.WithSpinner(spin), spinner.WithStyle(styles.Muted)),
		styles:  styles,
	}
}

// Session returns the session the block renders.
func (b *ResponseBlock) Session() *ponder.Session { return b.session }

// Tick starts the placeholder animation.
func (b *ResponseBlock) Tick() tea.Msg { return b.spinner.Tick() }

// Collapsible reports whether the block has a reasoning region to toggle.
func (b *ResponseBlock) Collapsible() bool {
	return b.session.Output().HasReasoning
}

func (b *ResponseBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	switch msg := msg.(type) {
	case ToggleMsg:
		b.collapsed = !b.collapsed
	case spinner.TickMsg:
		// Stop animating once the placeholder is gone.
		if !b.session.Output().Pending || b.session.Closed() {
			return b, nil
		}
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd
	}
	return b, nil
}

func (b *ResponseBlock) View(width int) string {
	out := b.session.Output()
	wrap := lipgloss.NewStyle().Width(width)
	var parts []string

	switch {
	case out.Pending && !b.session.Closed():
		parts = append(parts, b.spinner.View()+" "+b.styles.Muted.Render(placeholderText))
	case out.Pending:
		parts = append(parts, b.styles.Muted.Render(stoppedText))
	}

	if out.HasReasoning {
		indicator := "▼"
		if b.collapsed {
			indicator = "▶"
		}
		title := indicator + " Thinking Process"
		if !out.ReasoningComplete {
			title += "..."
		}
		parts = append(parts, b.styles.Reasoning.Render(wrap.Render(title)))
		if !b.collapsed && out.Reasoning != "" {
			parts = append(parts, b.styles.Reasoning.Render(out.Reasoning))
		}
	}

	if out.Answer != "" {
		parts = append(parts, out.Answer)
	}

	for _, n := range out.Notes {
		style := b.styles.Warning
		if n.Kind == ponder.NoteError {
			style = b.styles.Error
		}
		parts = append(parts, style.Render(wrap.Render(n.Text)))
	}

	if len(out.Citations) > 0 {
		var sb strings.Builder
		sb.WriteString(b.styles.Citation.Bold(true).Render("Sources:"))
		for _, c := range out.Citations {
			sb.WriteString("\n")
			line := "  • " + c.Name
			if c.Target != "#" {
				line += " " + b.styles.Muted.Render("("+c.Target+")")
			}
			sb.WriteString(b.styles.Citation.Render(line))
		}
		parts = append(parts, sb.String())
	}

	if c := out.Completion; c != nil {
		footer := "Completed " + c.At.Format("15:04:05")
		if c.Model != "" {
			footer += " · " + c.Model
		}
		parts = append(parts, b.styles.Success.Faint(true).Render(wrap.Render(footer)))
	}

	return strings.Join(parts, "\n")
}
