package emg

import (
	"sync"

	"emg-monitor.klederson.com/internal/config"
)

// Anchor is an optional calibration value.
type Anchor struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Or returns the anchor value, or def when unset.
func (a Anchor) Or(def float64) float64 {
	if a.Valid {
		return a.Value
	}
	return def
}

func anchorOf(v float64) Anchor { return Anchor{Value: v, Valid: true} }

// Calibration is a value copy of the calibration state.
type Calibration struct {
	BaselineRMS    Anchor  `json:"baselineRms"`
	MaxRMS         Anchor  `json:"maxRms"`
	ObservedMaxRMS float64 `json:"observedMaxRms"`
	BaselineMF     Anchor  `json:"baselineMf"`
	MinMF          Anchor  `json:"minMf"`
	ObservedMinMF  float64 `json:"observedMinMf"`
}

// DefaultCalibration is the uncalibrated state.
func DefaultCalibration() Calibration {
	return Calibration{
		ObservedMaxRMS: config.InitialObservedMax,
		ObservedMinMF:  config.InitialObservedMin,
	}
}

// AnchorKind names a calibration command.
type AnchorKind string

const (
	AnchorBaselineRMS AnchorKind = "baseline_rms"
	AnchorMaxRMS      AnchorKind = "max_rms"
	AnchorBaselineMF  AnchorKind = "baseline_mf"
	AnchorMinMF       AnchorKind = "min_mf"
)

// AnchorKinds lists every calibration command in display order.
var AnchorKinds = []AnchorKind{AnchorBaselineRMS, AnchorMaxRMS, AnchorBaselineMF, AnchorMinMF}

// Valid reports whether k names a known anchor.
func (k AnchorKind) Valid() bool {
	switch k {
	case AnchorBaselineRMS, AnchorMaxRMS, AnchorBaselineMF, AnchorMinMF:
		return true
	}
	return false
}

// CalibrationStore guards the calibration state shared by calibration
// commands and the metric worker.
type CalibrationStore struct {
	mu  sync.Mutex
	cal Calibration
}

// NewCalibrationStore creates an uncalibrated store.
func NewCalibrationStore() *CalibrationStore {
	return &CalibrationStore{cal: DefaultCalibration()}
}

// Snapshot returns a copy of the current calibration.
func (s *CalibrationStore) Snapshot() Calibration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cal
}

// Record computes the metric for kind over a newest-first snapshot and
// stores it. A zero read means no signal and leaves the previous anchor
// untouched. It returns the computed value and whether it was applied.
func (s *CalibrationStore) Record(kind AnchorKind, samples []float64) (float64, bool) {
	switch kind {
	case AnchorBaselineRMS:
		return s.RecordBaselineRMS(samples)
	case AnchorMaxRMS:
		return s.RecordMaxRMS(samples)
	case AnchorBaselineMF:
		return s.RecordBaselineMF(samples)
	case AnchorMinMF:
		return s.RecordMinMF(samples)
	}
	return 0, false
}

func (s *CalibrationStore) RecordBaselineRMS(samples []float64) (float64, bool) {
	v := ComputeRMS(samples, config.CalibrationWindow)
	if v <= 0 {
		return v, false
	}
	s.mu.Lock()
	s.cal.BaselineRMS = anchorOf(v)
	s.mu.Unlock()
	return v, true
}

func (s *CalibrationStore) RecordMaxRMS(samples []float64) (float64, bool) {
	v := ComputeRMS(samples, config.CalibrationWindow)
	if v <= 0 {
		return v, false
	}
	s.mu.Lock()
	s.cal.MaxRMS = anchorOf(v)
	s.cal.ObservedMaxRMS = max(s.cal.ObservedMaxRMS, v)
	s.mu.Unlock()
	return v, true
}

func (s *CalibrationStore) RecordBaselineMF(samples []float64) (float64, bool) {
	v := ComputeMedianFreqNormalized(samples, config.CalibrationWindow)
	if v <= 0 {
		return v, false
	}
	s.mu.Lock()
	s.cal.BaselineMF = anchorOf(v)
	s.mu.Unlock()
	return v, true
}

func (s *CalibrationStore) RecordMinMF(samples []float64) (float64, bool) {
	v := ComputeMedianFreqNormalized(samples, config.CalibrationWindow)
	if v <= 0 {
		return v, false
	}
	s.mu.Lock()
	s.cal.MinMF = anchorOf(v)
	s.cal.ObservedMinMF = min(s.cal.ObservedMinMF, v)
	s.mu.Unlock()
	return v, true
}

// UpdateObserved folds a fresh computation into the observed extremes.
// ObservedMaxRMS only rises and ObservedMinMF only falls until Reset.
func (s *CalibrationStore) UpdateObserved(rms, mf float64) {
	s.mu.Lock()
	s.cal.ObservedMaxRMS = max(s.cal.ObservedMaxRMS, rms)
	s.cal.ObservedMinMF = min(s.cal.ObservedMinMF, mf)
	s.mu.Unlock()
}

// Reset restores the uncalibrated defaults.
func (s *CalibrationStore) Reset() {
	s.mu.Lock()
	s.cal = DefaultCalibration()
	s.mu.Unlock()
}
