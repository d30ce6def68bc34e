package ui

import "github.com/charmbracelet/lipgloss"

// Oscilloscope palette: phosphor trace on a dark teal bezel.
var (
	ColorPhosphor = lipgloss.Color("#39FFB0")
	ColorText     = lipgloss.Color("#2FD3A0")
	ColorMuted    = lipgloss.Color("#1F8A6E")
	ColorDim      = lipgloss.Color("#0F4538")
	ColorBezel    = lipgloss.Color("#06231D")
	ColorCursor   = lipgloss.Color("#0B3A30")
	ColorStrength = lipgloss.Color("#5AD7FF")
	ColorTrace    = lipgloss.Color("#7CFFCB")
	ColorFrame    = lipgloss.Color("#1FB38A")
	ColorError    = lipgloss.Color("#FF4D4D")
	ColorIdle     = lipgloss.Color("#FFB347")
)

// Bars
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(ColorBezel).
			Foreground(ColorPhosphor).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey   = lipgloss.NewStyle().Foreground(ColorPhosphor).Bold(true)
	StyleMenuLabel = lipgloss.NewStyle().Foreground(ColorText)

	StyleStatusBar = lipgloss.NewStyle().
			Background(ColorBezel).
			Foreground(ColorText).
			Padding(0, 1)

	StyleStatusText      = lipgloss.NewStyle().Background(ColorBezel).Foreground(ColorText)
	StyleStatusStreaming = lipgloss.NewStyle().Foreground(ColorPhosphor).Bold(true)
	StyleStatusIdle      = lipgloss.NewStyle().Foreground(ColorIdle).Bold(true)
	StyleStatusError     = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)

// Panels
var (
	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorMuted)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(ColorFrame)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorPhosphor).
			Bold(true).
			Padding(0, 1)

	StyleLabel      = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleValue      = lipgloss.NewStyle().Foreground(ColorPhosphor).Bold(true)
	StyleUnset      = lipgloss.NewStyle().Foreground(ColorDim)
	StyleTrace      = lipgloss.NewStyle().Foreground(ColorTrace)
	StyleHelp       = lipgloss.NewStyle().Foreground(ColorDim)
	StyleCursorLine = lipgloss.NewStyle().Background(ColorCursor)
)
