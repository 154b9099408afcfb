package bubbletea

// RenderContent exposes renderContent for testing.
func RenderContent(m Model) string { return m.renderContent() }
