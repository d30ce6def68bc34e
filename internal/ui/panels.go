package ui

import (
	"fmt"
	"strings"

	"emg-monitor.klederson.com/internal/config"
	"emg-monitor.klederson.com/internal/emg"
	"github.com/charmbracelet/lipgloss"
)

// ParamNames lists the adjustable fusion parameters in display order.
var ParamNames = []string{"Strength idx", "Fatigue idx", "FI sens", "FL sens"}

// ParamValue returns the i-th parameter in ParamNames order.
func ParamValue(p config.Params, i int) float64 {
	switch i {
	case 0:
		return p.StrengthIndex
	case 1:
		return p.FatigueIndex
	case 2:
		return p.FISensitivity
	default:
		return p.FLSensitivity
	}
}

// SetParamValue sets the i-th parameter in ParamNames order.
func SetParamValue(p *config.Params, i int, v float64) {
	switch i {
	case 0:
		p.StrengthIndex = v
	case 1:
		p.FatigueIndex = v
	case 2:
		p.FISensitivity = v
	default:
		p.FLSensitivity = v
	}
}

func innerWidth(width int) int {
	return max(width-4, 10)
}

func panelHeader(title string, innerW int) []string {
	return []string{
		StylePanelTitle.Render(title),
		StyleLabel.Render(strings.Repeat("-", innerW)),
	}
}

func box(lines []string, width, height int, active bool) string {
	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}
	style := StylePanelBorder
	if active {
		style = StylePanelActive
	}
	return style.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

// RenderChartPanel draws the buffer waveform (samples newest first).
func RenderChartPanel(samples []float64, width, height int) string {
	innerW := innerWidth(width)
	lines := panelHeader(fmt.Sprintf("EMG [%d]", len(samples)), innerW)
	chartH := max(height-2-len(lines), 1)
	for _, row := range RenderChart(samples, innerW, chartH) {
		lines = append(lines, StyleTrace.Render(row))
	}
	return box(lines, width, height, false)
}

// RenderReadingPanel draws the strength and fatigue bars with the metrics
// behind them, plus the fatigue trend (chronological).
func RenderReadingPanel(r emg.Reading, p config.Params, trend []float64, width, height int) string {
	innerW := innerWidth(width)
	lines := panelHeader("READING", innerW)

	barW := max(innerW-22, 10)
	strength := p.DisplayStrength(r.Strength)
	fatigueColor := lipgloss.Color(FatigueColor(r.Fatigue))

	lines = append(lines,
		StyleLabel.Render("  Strength ")+RenderBar(strength, barW, ColorStrength)+StyleValue.Render(fmt.Sprintf(" %3.0f%%", strength*100)),
		StyleLabel.Render("  Fatigue  ")+RenderBar(r.Fatigue, barW, fatigueColor)+lipgloss.NewStyle().Foreground(fatigueColor).Bold(true).Render(fmt.Sprintf(" %3.0f%%", r.Fatigue*100)),
		"",
	)

	fields := []struct{ label, value string }{
		{"RMS", fmt.Sprintf("%.4f", r.Metrics.RMS)},
		{"Peak", fmt.Sprintf("%.4f", r.Metrics.PeakMeanAbs)},
		{"Median F", fmt.Sprintf("%.3f Nyq", r.Metrics.MedianFreq)},
		{"FL / FI", fmt.Sprintf("%.2f / %.2f", r.FL, r.FI)},
	}
	for _, f := range fields {
		lines = append(lines, StyleLabel.Render(fmt.Sprintf("  %-10s", f.label))+StyleValue.Render(f.value))
	}

	if len(trend) > 0 {
		lines = append(lines, "", StyleLabel.Render("  Fatigue trend:"))
		spark := RenderSparkline(trend, innerW-4, 0, 1)
		last := trend[len(trend)-1]
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(lipgloss.Color(FatigueColor(last))).Render(spark))
	}
	return box(lines, width, height, false)
}

// RenderCalibrationPanel lists the calibration anchors, "--" for unset ones.
func RenderCalibrationPanel(c emg.Calibration, width int) string {
	innerW := innerWidth(width)
	lines := panelHeader("CALIBRATION", innerW)

	anchor := func(a emg.Anchor) string {
		if !a.Valid {
			return StyleUnset.Render("--")
		}
		return StyleValue.Render(fmt.Sprintf("%.4f", a.Value))
	}
	rows := []struct{ key, label, value string }{
		{"B", "Base RMS", anchor(c.BaselineRMS)},
		{"M", "Max RMS", anchor(c.MaxRMS)},
		{"N", "Base MF", anchor(c.BaselineMF)},
		{"F", "Min MF", anchor(c.MinMF)},
		{" ", "Obs max", StyleValue.Render(fmt.Sprintf("%.4f", c.ObservedMaxRMS))},
		{" ", "Obs min", StyleValue.Render(fmt.Sprintf("%.4f", c.ObservedMinMF))},
	}
	for _, r := range rows {
		lines = append(lines, StyleHelp.Render(" "+r.key+" ")+StyleLabel.Render(fmt.Sprintf("%-9s", r.label))+r.value)
	}
	return box(lines, width, len(lines)+2, false)
}

// RenderParamsPanel lists the fusion parameters with the cursor on selected.
func RenderParamsPanel(p config.Params, selected, width int, active bool) string {
	innerW := innerWidth(width)
	lines := panelHeader("PARAMS", innerW)

	for i, name := range ParamNames {
		line := StyleLabel.Render(fmt.Sprintf("  %-13s", name)) + StyleValue.Render(fmt.Sprintf("%.2f", ParamValue(p, i)))
		if i == selected && active {
			line = StyleCursorLine.Render(line + strings.Repeat(" ", max(innerW-lipgloss.Width(line), 0)))
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", StyleHelp.Render("  ↑/↓ select  ←/→ adjust"))
	return box(lines, width, len(lines)+2, active)
}
