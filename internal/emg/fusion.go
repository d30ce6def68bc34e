package emg

import (
	"emg-monitor.klederson.com/internal/config"
)

// Reading is the published pair of display values plus the terms that
// produced them.
type Reading struct {
	Strength float64 `json:"strength"` // [0, 1], before the strength index
	Fatigue  float64 `json:"fatigue"`  // [0, 1], fatigue index applied
	FI       float64 `json:"fi"`       // frequency-domain term
	FL       float64 `json:"fl"`       // amplitude-domain term
	Metrics  Metrics `json:"metrics"`
}

// Fuse combines the frequency and amplitude fatigue terms into one bounded
// fatigue value and derives strength from the peak mean. Params are
// clamped to their documented ranges first.
func Fuse(m Metrics, cal Calibration, p config.Params) Reading {
	p = p.Clamped()

	fl := AmplitudeFatigue(m.RMS, cal)
	fi := FrequencyFatigue(m.MedianFreq, cal)

	var combined float64
	if w := p.FISensitivity + p.FLSensitivity; w > 0 {
		combined = (fi*p.FISensitivity + fl*p.FLSensitivity) / w
	} else {
		combined = (fi + fl) / 2
	}

	return Reading{
		Strength: clamp01(m.PeakMeanAbs),
		Fatigue:  clamp01(combined * p.FatigueIndex),
		FI:       fi,
		FL:       fl,
		Metrics:  m,
	}
}

// AmplitudeFatigue normalises rms between the baseline and the best known
// maximum: the calibrated one, else the observed one, else twice the
// baseline (0.5 when there is no baseline either).
//
// TODO: the final fallback has no physiological basis; replace it once
// uncalibrated sessions have been characterised.
func AmplitudeFatigue(rms float64, cal Calibration) float64 {
	usedMax := cal.MaxRMS.Or(0)
	if !cal.MaxRMS.Valid {
		usedMax = max(cal.ObservedMaxRMS, rms)
		if usedMax <= 0 {
			usedMax = cal.BaselineRMS.Or(config.FallbackBaseRMS) * 2
		}
	}
	base := cal.BaselineRMS.Or(0)
	return clamp01((rms - base) / guard(usedMax-base))
}

// FrequencyFatigue is the normalised drop of the median frequency from its
// baseline. Median frequency falls as a muscle fatigues.
func FrequencyFatigue(mf float64, cal Calibration) float64 {
	baseMF := cal.BaselineMF.Or(mf)
	minMF := cal.MinMF.Or(min(cal.ObservedMinMF, mf))
	return clamp01((baseMF - mf) / guard(baseMF-minMF))
}

func guard(denom float64) float64 {
	return max(denom, config.Epsilon)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
