package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

var (
	keyword = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}).Render
	subtle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}).Render
)

// paragraph formats help text for terminal display.
func paragraph(s string) string {
	return lipgloss.NewStyle().Padding(0, 0, 1, 2).Render(
		indent.String(wordwrap.String(s, 78), 0),
	)
}
