package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#E5A00D")
	dim    = lipgloss.Color("#6B7280")
	green  = lipgloss.Color("#10B981")
	red    = lipgloss.Color("#EF4444")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1F2937")).
			Background(accent).
			Bold(true).
			Padding(0, 1)

	cursorStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	errorStyle    = lipgloss.NewStyle().Foreground(red)
	checkStyle    = lipgloss.NewStyle().Foreground(green)
	frameStyle    = lipgloss.NewStyle().Padding(1, 2)
	selectedTitle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(accent).
			Foreground(accent).
			Padding(0, 0, 0, 1)
)

const checkMark = "✓"
