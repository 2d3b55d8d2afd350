package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"})

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EE6FF8")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})

	helpStyle = dimStyle.Padding(1, 0, 0, 2)

	listStyle = lipgloss.NewStyle().Padding(1, 2)
)

// statusGlyphs map job statuses to their list markers.
var statusGlyphs = map[string]string{
	"queued":  "•",
	"running": "▶",
	"paused":  "⏸",
	"done":    "✓",
	"failed":  "✗",
}
