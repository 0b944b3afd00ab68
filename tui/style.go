package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAFBE"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
	creditStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	indexStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(5)
	buttonStyle   = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B4FE9"))
)
