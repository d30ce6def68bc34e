package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"emg-monitor.klederson.com/internal/config"
	"emg-monitor.klederson.com/internal/emg"
	"emg-monitor.klederson.com/internal/sensor"
	"emg-monitor.klederson.com/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// paramStep is the change applied by one left/right key press.
const paramStep = 0.1

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	sched      *emg.Scheduler
	source     sensor.Source
	trend      *TrendRing
	paramsPath string
	logger     zerolog.Logger
	lastSeq    uint64
}

// Model is the root Bubble Tea model for the EMG monitor.
type Model struct {
	width  int
	height int

	sourceName string
	editing    bool // params panel has focus
	selected   int  // index into ui.ParamNames
	notice     string
	noticeErr  bool

	shared *shared

	// Cached snapshot
	frame emg.Frame
}

// Option configures a Model.
type Option func(*Model)

// WithParamsPath enables saving parameters with the W key.
func WithParamsPath(path string) Option {
	return func(m *Model) { m.shared.paramsPath = path }
}

// WithLogger sets the logger for key actions.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.shared.logger = l.With().Str("component", "app").Logger() }
}

// New creates a model driving sched with samples from source.
func New(sched *emg.Scheduler, source sensor.Source, sourceName string, opts ...Option) Model {
	m := Model{
		sourceName: sourceName,
		shared: &shared{
			sched:  sched,
			source: source,
			trend:  NewTrendRing(config.TrendCapacity),
			logger: zerolog.Nop(),
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForFrame(m.shared.sched.Updates()),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case FrameMsg:
		m.refresh()
		return m, waitForFrame(m.shared.sched.Updates())

	case SourceErrorMsg:
		m.setError(fmt.Sprintf("source: %v", msg.Err))
		return m, nil

	case ParamsReloadedMsg:
		m.setNotice("params reloaded")
		return m, nil
	}

	return m, nil
}

// refresh pulls the latest frame and extends the fatigue trend once per
// published frame.
func (m *Model) refresh() {
	f := m.shared.sched.Frame()
	if f.Seq != 0 && f.Seq != m.shared.lastSeq {
		m.shared.lastSeq = f.Seq
		m.shared.trend.Push(f.Reading.Fatigue)
	}
	m.frame = f
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sched := m.shared.sched

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.StopSource()
		sched.Stop()
		return m, tea.Quit

	case "s", "S":
		if sched.Start() {
			m.setNotice("streaming started")
		} else {
			m.setNotice("already streaming")
		}

	case "p", "P":
		if sched.Stop() {
			m.setNotice("streaming stopped")
		}

	case "r", "R":
		sched.Reset()
		m.shared.trend.Clear()
		// the cleared frame does not belong in the trend
		m.frame = sched.Frame()
		m.shared.lastSeq = m.frame.Seq
		m.setNotice("session reset")

	case "b", "B":
		m.calibrate(emg.AnchorBaselineRMS, "Baseline RMS")
	case "m", "M":
		m.calibrate(emg.AnchorMaxRMS, "Max RMS")
	case "n", "N":
		m.calibrate(emg.AnchorBaselineMF, "Baseline MF")
	case "f", "F":
		m.calibrate(emg.AnchorMinMF, "Min MF")

	case "tab":
		m.editing = !m.editing

	case "up", "k":
		if m.editing && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.editing && m.selected < len(ui.ParamNames)-1 {
			m.selected++
		}

	case "left", "h":
		if m.editing {
			m.adjust(-paramStep)
		}

	case "right", "l":
		if m.editing {
			m.adjust(paramStep)
		}

	case "w", "W":
		m.saveParams()
	}

	return m, nil
}

func (m *Model) calibrate(kind emg.AnchorKind, label string) {
	v, ok := m.shared.sched.Calibrate(kind)
	if !ok {
		m.setError(label + " not recorded (no signal)")
		return
	}
	m.setNotice(fmt.Sprintf("%s = %.4f", label, v))
}

func (m *Model) adjust(delta float64) {
	i := m.selected
	p := m.shared.sched.UpdateParams(func(p *config.Params) {
		// round to the step grid so repeated presses do not drift
		v := math.Round((ui.ParamValue(*p, i)+delta)*10) / 10
		ui.SetParamValue(p, i, v)
	})
	m.setNotice(fmt.Sprintf("%s = %.2f", ui.ParamNames[i], ui.ParamValue(p, i)))
}

func (m *Model) saveParams() {
	if m.shared.paramsPath == "" {
		m.setError("no params file configured")
		return
	}
	if err := config.SaveParams(m.shared.paramsPath, m.shared.sched.Params()); err != nil {
		m.shared.logger.Error().Err(err).Msg("save params")
		m.setError(fmt.Sprintf("save params: %v", err))
		return
	}
	m.setNotice("params saved to " + m.shared.paramsPath)
}

func (m *Model) setNotice(s string) {
	m.notice, m.noticeErr = s, false
	m.shared.logger.Info().Msg(s)
}

func (m *Model) setError(s string) {
	m.notice, m.noticeErr = s, true
	m.shared.logger.Warn().Msg(s)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing EMG Monitor..."
	}

	sched := m.shared.sched
	streaming := sched.State() == emg.Streaming

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 10 {
		bodyH = 10
	}

	sideW := 34
	mainW := m.width - sideW
	if mainW < 40 {
		mainW = 40
	}

	readingH := 14
	chartH := bodyH - readingH
	if chartH < 6 {
		chartH = 6
	}

	menuBar := ui.RenderMenuBar(m.width, m.sourceName, streaming)
	chart := ui.RenderChartPanel(m.frame.Samples, mainW, chartH)
	params := sched.Params()
	readings := ui.RenderReadingPanel(m.frame.Reading, params, m.shared.trend.Values(), mainW, readingH)
	side := ui.RenderCalibrationPanel(sched.Calibration(), sideW) + "\n" +
		ui.RenderParamsPanel(params, m.selected, sideW, m.editing)

	info := ui.StatusInfo{
		Streaming: streaming,
		Session:   sched.SessionID(),
		Buffered:  sched.Len(),
		Capacity:  sched.Capacity(),
		Seq:       m.frame.Seq,
		Notice:    m.notice,
		Error:     m.noticeErr,
	}
	if r, ok := m.shared.source.(sensor.StatsReporter); ok {
		info.HasLink = true
		info.Packets, info.Decoded = r.Stats()
	}
	statusBar := ui.RenderStatusBar(m.width, info)

	return ui.ComposeLayout(menuBar, chart, readings, side, statusBar)
}

// StartSource starts the sample source feeding the scheduler. Must be
// called before p.Run().
func (m *Model) StartSource(ctx context.Context) error {
	if m.shared.source == nil {
		return nil
	}
	return m.shared.source.Start(ctx, m.shared.sched)
}

// StopSource stops the sample source.
func (m *Model) StopSource() {
	if m.shared.source == nil {
		return
	}
	if err := m.shared.source.Stop(); err != nil {
		m.shared.logger.Warn().Err(err).Msg("stop source")
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForFrame(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return FrameMsg{}
	}
}
