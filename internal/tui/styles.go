package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent   = lipgloss.Color("#ABFE2C")
	dimGray  = lipgloss.Color("#6B7280")
	white    = lipgloss.Color("#F9FAFB")
	red      = lipgloss.Color("#EF4444")
	slateDim = lipgloss.Color("#374151")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(white).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	accentStyle = lipgloss.NewStyle().
			Foreground(accent)

	errorStyle = lipgloss.NewStyle().
			Foreground(red)

	selectedStyle = lipgloss.NewStyle().
			Foreground(white).
			Background(slateDim).
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			PaddingLeft(1)
)
