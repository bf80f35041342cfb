package main

import "github.com/charmbracelet/lipgloss"

// Terminal styles for the chat surface.
var (
	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	uncertainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))
)

// stageBar renders the stage checklist, e.g. "● ● ◉ ○ ○ ○ ○".
func stageBar(current, total int) string {
	out := ""
	for i := 1; i <= total; i++ {
		switch {
		case i < current:
			out += stageStyle.Render("●")
		case i == current:
			out += stageStyle.Render("◉")
		default:
			out += hintStyle.Render("○")
		}
		if i < total {
			out += " "
		}
	}
	return out
}
