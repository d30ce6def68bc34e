package ui

import (
	"math"
	"strings"
	"testing"

	"emg-monitor.klederson.com/internal/config"
	"emg-monitor.klederson.com/internal/emg"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFatigueColor(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{0, "#00FF00"},
		{0.25, "#80FF00"},
		{0.5, "#FFFF00"},
		{0.75, "#FF8000"},
		{1, "#FF0000"},
		{-1, "#00FF00"},
		{3, "#FF0000"},
		{math.NaN(), "#00FF00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FatigueColor(tt.f), "fatigue %v", tt.f)
	}
}

func TestRenderBar(t *testing.T) {
	bar := RenderBar(0.5, 10, ColorStrength)
	assert.Equal(t, 12, lipgloss.Width(bar))
	assert.Equal(t, 5, strings.Count(bar, "|"))
	assert.Equal(t, 5, strings.Count(bar, "-"))

	assert.Equal(t, 10, strings.Count(RenderBar(1.7, 10, ColorStrength), "|"))
	assert.Equal(t, 0, strings.Count(RenderBar(-0.2, 10, ColorStrength), "|"))
}

func TestRenderSparkline(t *testing.T) {
	assert.Equal(t, "", RenderSparkline(nil, 10, 0, 1))
	assert.Equal(t, "▁▄█", RenderSparkline([]float64{0, 0.5, 1}, 10, 0, 1))
	// keeps the newest values
	assert.Equal(t, "▄█", RenderSparkline([]float64{0, 0.5, 1}, 2, 0, 1))
	// out of range values saturate
	assert.Equal(t, "▁█", RenderSparkline([]float64{-5, 5}, 10, 0, 1))
}

func TestRenderChart(t *testing.T) {
	t.Run("Empty draws baseline", func(t *testing.T) {
		rows := RenderChart(nil, 8, 5)
		require.Len(t, rows, 5)
		assert.Equal(t, "--------", rows[2])
		assert.Equal(t, "        ", rows[0])
	})

	t.Run("Dimensions", func(t *testing.T) {
		samples := make([]float64, 2000)
		for i := range samples {
			samples[i] = math.Sin(float64(i) / 10)
		}
		rows := RenderChart(samples, 40, 7)
		require.Len(t, rows, 7)
		for _, r := range rows {
			assert.Equal(t, 40, lipgloss.Width(r))
		}
	})

	t.Run("Oldest on the left", func(t *testing.T) {
		// newest first: the newest half is high, the oldest half is low
		samples := []float64{1, 1, -1, -1}
		rows := RenderChart(samples, 2, 3)
		assert.Equal(t, []rune(rows[2])[0], '·')
		assert.Equal(t, []rune(rows[0])[1], '·')
	})

	t.Run("Degenerate size", func(t *testing.T) {
		assert.Nil(t, RenderChart([]float64{1}, 0, 3))
	})
}

func TestParamAccessors(t *testing.T) {
	p := config.DefaultParams()
	for i := range ParamNames {
		SetParamValue(&p, i, float64(i)/4)
	}
	assert.Equal(t, config.Params{StrengthIndex: 0, FatigueIndex: 0.25, FISensitivity: 0.5, FLSensitivity: 0.75}, p)
	for i := range ParamNames {
		assert.Equal(t, float64(i)/4, ParamValue(p, i))
	}
}

func TestRenderPanels(t *testing.T) {
	r := emg.Reading{Strength: 0.4, Fatigue: 0.6, Metrics: emg.Metrics{RMS: 0.12}}
	out := RenderReadingPanel(r, config.DefaultParams(), []float64{0.1, 0.6}, 60, 16)
	assert.Contains(t, out, "READING")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "60%")
	assert.Contains(t, out, "0.1200")
	assert.Equal(t, 16, lipgloss.Height(out))

	cal := emg.DefaultCalibration()
	out = RenderCalibrationPanel(cal, 30)
	assert.Equal(t, 4, strings.Count(out, " --"), "unset anchors")

	out = RenderParamsPanel(config.DefaultParams(), 1, 30, true)
	assert.Contains(t, out, "Fatigue idx")
	assert.Contains(t, out, "1.00")

	out = RenderChartPanel(nil, 40, 10)
	assert.Contains(t, out, "EMG [0]")
	assert.Equal(t, 10, lipgloss.Height(out))
}

func TestRenderBars(t *testing.T) {
	menu := RenderMenuBar(200, "demo", true)
	assert.Contains(t, menu, "STREAMING")
	assert.Contains(t, menu, "Source: demo")

	// the bar is exactly one row at its full width, however narrow
	for _, w := range []int{200, 160, 120, 40} {
		menu := RenderMenuBar(w, "demo", true)
		assert.Equal(t, 1, lipgloss.Height(menu), "width %d", w)
		assert.Equal(t, w, lipgloss.Width(menu), "width %d", w)

		status := RenderStatusBar(w, StatusInfo{Session: "0123456789", Buffered: 2000, Capacity: 2000, Notice: "params saved to /tmp/emg/params.toml"})
		assert.Equal(t, 1, lipgloss.Height(status), "width %d", w)
		assert.Equal(t, w, lipgloss.Width(status), "width %d", w)
	}

	status := RenderStatusBar(100, StatusInfo{Session: "0123456789", Buffered: 10, Capacity: 2000, Notice: "saved"})
	assert.Contains(t, status, "[IDLE]")
	assert.Contains(t, status, "Session: 01234567 ")
	assert.Contains(t, status, "Buffer: 10/2000")
	assert.Contains(t, status, "saved")
	assert.NotContains(t, status, "Packets")

	status = RenderStatusBar(120, StatusInfo{HasLink: true, Packets: 12, Decoded: 240, Capacity: 2000})
	assert.Contains(t, status, "Packets: 12 (240 samples)")
}
