package tui

import "github.com/charmbracelet/lipgloss"

var (
	dimColor     = lipgloss.Color("7")
	accentColor  = lipgloss.Color("12")
	successColor = lipgloss.Color("10")
	dangerColor  = lipgloss.Color("9")

	userStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	// Lines a user turn with a vertical bar, like a quote.
	userBlockStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(successColor).
			PaddingLeft(1)
)
