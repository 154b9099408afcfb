package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*UserMessageBlock)(nil)

// UserMessageBlock renders a submitted message with a "> " prefix.
type UserMessageBlock struct {
	text      string
	reasoning bool
	styles    Styles
}

// NewUserMessageBlock creates a UserMessageBlock. reasoning marks
// submissions made with reasoning mode on.
func NewUserMessageBlock(text string, reasoning bool, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{text: text, reasoning: reasoning, styles: styles}
}

func (b *UserMessageBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *UserMessageBlock) View(width int) string {
	content := b.styles.UserMsg.Render("> ") + b.text
	if b.reasoning {
		content += " " + b.styles.Muted.Render("[reasoning]")
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}
