package cmd

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	agentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderMarkdown converts markdown to styled terminal output.
// Falls back to the plain text if glamour fails.
func renderMarkdown(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}
