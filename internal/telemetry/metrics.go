package telemetry

import (
	"time"

	"emg-monitor.klederson.com/internal/emg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports scheduler events to prometheus. It implements
// emg.Observer.
type Metrics struct {
	samplesIngested  prometheus.Counter
	samplesDiscarded prometheus.Counter
	computeDropped   prometheus.Counter
	computations     prometheus.Counter
	framesPublished  prometheus.Counter
	computeSeconds   prometheus.Histogram
	strength         prometheus.Gauge
	fatigue          prometheus.Gauge
	rms              prometheus.Gauge
	medianFreq       prometheus.Gauge
	streaming        prometheus.Gauge
	calibration      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil
// reg uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		samplesIngested: f.NewCounter(prometheus.CounterOpts{
			Name: "emg_samples_ingested_total",
			Help: "Total number of samples appended to the buffer",
		}),
		samplesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "emg_samples_discarded_total",
			Help: "Total number of samples dropped while idle",
		}),
		computeDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "emg_compute_dropped_total",
			Help: "Total number of queued computations replaced by a newer one",
		}),
		computations: f.NewCounter(prometheus.CounterOpts{
			Name: "emg_computations_total",
			Help: "Total number of metric and fusion passes published",
		}),
		framesPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "emg_frames_published_total",
			Help: "Total number of throttled display frames published",
		}),
		computeSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "emg_compute_duration_seconds",
			Help:    "Time spent computing metrics and fusion",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		}),
		strength: f.NewGauge(prometheus.GaugeOpts{
			Name: "emg_strength",
			Help: "Latest strength reading in [0, 1]",
		}),
		fatigue: f.NewGauge(prometheus.GaugeOpts{
			Name: "emg_fatigue",
			Help: "Latest fatigue reading in [0, 1]",
		}),
		rms: f.NewGauge(prometheus.GaugeOpts{
			Name: "emg_rms",
			Help: "Latest windowed RMS",
		}),
		medianFreq: f.NewGauge(prometheus.GaugeOpts{
			Name: "emg_median_frequency_ratio",
			Help: "Latest median frequency as a fraction of Nyquist",
		}),
		streaming: f.NewGauge(prometheus.GaugeOpts{
			Name: "emg_streaming",
			Help: "1 while the scheduler is streaming",
		}),
		calibration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "emg_calibration_anchor",
			Help: "Most recently recorded calibration anchors",
		}, []string{"anchor"}),
	}
}

func (m *Metrics) SampleIngested() { m.samplesIngested.Inc() }
func (m *Metrics) SampleDiscarded() { m.samplesDiscarded.Inc() }
func (m *Metrics) ComputeDropped() { m.computeDropped.Inc() }
func (m *Metrics) FramePublished() { m.framesPublished.Inc() }

func (m *Metrics) Computed(r emg.Reading, took time.Duration) {
	m.computations.Inc()
	m.computeSeconds.Observe(took.Seconds())
	m.strength.Set(r.Strength)
	m.fatigue.Set(r.Fatigue)
	m.rms.Set(r.Metrics.RMS)
	m.medianFreq.Set(r.Metrics.MedianFreq)
}

func (m *Metrics) Calibrated(kind emg.AnchorKind, value float64) {
	m.calibration.WithLabelValues(string(kind)).Set(value)
}

func (m *Metrics) StateChanged(state emg.State) {
	if state == emg.Streaming {
		m.streaming.Set(1)
		return
	}
	m.streaming.Set(0)
}
