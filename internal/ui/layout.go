package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the chart above the readings and joins the side
// panels on the right, with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, chart, readings, side, statusBar string) string {
	left := lipgloss.JoinVertical(lipgloss.Left, chart, readings)
	middle := lipgloss.JoinHorizontal(lipgloss.Top, left, side)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}
