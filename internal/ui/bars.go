package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FatigueColor maps a fatigue level in [0, 1] to a hex color, green at 0
// through yellow at 0.5 to red at 1.
func FatigueColor(f float64) string {
	f = clamp01(f)
	var r, g float64
	if f < 0.5 {
		r, g = f*2, 1
	} else {
		r, g = 1, 1-(f-0.5)*2
	}
	return fmt.Sprintf("#%02X%02X00", int(math.Round(r*255)), int(math.Round(g*255)))
}

// RenderBar draws ratio in [0, 1] as a bracketed bar of the given inner
// width.
func RenderBar(ratio float64, width int, color lipgloss.Color) string {
	if width < 1 {
		width = 1
	}
	filled := int(math.Round(clamp01(ratio) * float64(width)))

	bar := strings.Repeat("|", filled) + strings.Repeat("-", width-filled)
	filledPart := lipgloss.NewStyle().Foreground(color).Render(bar[:filled])
	emptyPart := lipgloss.NewStyle().Foreground(ColorDim).Render(bar[filled:])
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline renders the last width values scaled to [lo, hi]. Values
// are in chronological order.
func RenderSparkline(values []float64, width int, lo, hi float64) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	rng := hi - lo
	if rng <= 0 {
		rng = 1
	}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for _, v := range values[start:] {
		idx := int((v - lo) / rng * float64(len(sparkChars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		sb.WriteRune(sparkChars[idx])
	}
	return sb.String()
}

// RenderChart draws a waveform of samples (newest first) as a height-row
// min/max envelope, oldest on the left. Amplitude is scaled to the largest
// absolute sample so quiet signals stay visible.
func RenderChart(samples []float64, width, height int) []string {
	if width < 1 || height < 1 {
		return nil
	}
	rows := make([][]rune, height)
	for i := range rows {
		rows[i] = []rune(strings.Repeat(" ", width))
	}
	mid := height / 2
	if len(samples) == 0 {
		for x := range rows[mid] {
			rows[mid][x] = '-'
		}
		return joinRows(rows)
	}

	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak < 1e-9 {
		peak = 1
	}

	toRow := func(v float64) int {
		// +peak at row 0, -peak at the last row
		r := int(math.Round((1 - v/peak) / 2 * float64(height-1)))
		return min(max(r, 0), height-1)
	}

	n := len(samples)
	for x := 0; x < width; x++ {
		// column x covers the chronological range [from, to)
		from := x * n / width
		to := (x + 1) * n / width
		if to <= from {
			to = from + 1
		}
		if from >= n {
			break
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := from; i < to && i < n; i++ {
			v := samples[n-1-i]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		top, bottom := toRow(hi), toRow(lo)
		for y := top; y <= bottom; y++ {
			rows[y][x] = '│'
		}
		if top == bottom {
			rows[top][x] = '·'
		}
	}
	return joinRows(rows)
}

func joinRows(rows [][]rune) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
