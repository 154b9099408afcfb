package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ponder"
	"github.com/fwojciec/ponder/fs"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*FilesBlock)(nil)

// FilesBlock renders the backend's document listing as aligned columns.
type FilesBlock struct {
	files  []ponder.File
	styles Styles
}

// NewFilesBlock creates a FilesBlock.
func NewFilesBlock(files []ponder.File, styles Styles) *FilesBlock {
	return &FilesBlock{files: files, styles: styles}
}

func (b *FilesBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *FilesBlock) View(width int) string {
	header := b.styles.Accent.Render("Documents")
	if len(b.files) == 0 {
		return header + "\n" + b.styles.Muted.Render("  No documents found.")
	}

	const sizeCol = 10
	nameCol := 0
	for _, f := range b.files {
		nameCol = max(nameCol, runewidth.StringWidth(f.Name))
	}
	// Leave room for the indent, the size column and a gap.
	nameCol = max(min(nameCol, width-sizeCol-4), 1)

	var sb strings.Builder
	sb.WriteString(header)
	for _, f := range b.files {
		name := runewidth.Truncate(f.Name, nameCol, "…")
		sb.WriteString("\n  ")
		sb.WriteString(runewidth.FillRight(name, nameCol))
		sb.WriteString(" ")
		sb.WriteString(b.styles.Muted.Render(runewidth.FillLeft(fs.HumanSize(f.Size), sizeCol)))
	}
	return sb.String()
}
