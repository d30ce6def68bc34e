package emg

import (
	"math"
	"slices"

	"emg-monitor.klederson.com/internal/config"
)

// Metrics holds the raw values of one computation pass over a snapshot.
type Metrics struct {
	RMS         float64 `json:"rms"`
	PeakMeanAbs float64 `json:"peakMeanAbs"`
	MedianFreq  float64 `json:"medianFreq"` // fraction of Nyquist in [0, 1]
}

// ComputeMetrics evaluates all three metrics on a newest-first snapshot
// using the standard windows.
func ComputeMetrics(samples []float64) Metrics {
	return Metrics{
		RMS:         ComputeRMS(samples, config.RMSWindow),
		PeakMeanAbs: ComputeTopMeanAbs(samples, config.PeakTopN),
		MedianFreq:  ComputeMedianFreqNormalized(samples, config.MedianFreqWindow),
	}
}

// ComputeRMS returns the root-mean-square of the newest min(window, len)
// samples. samples is newest first. Empty input yields 0.
func ComputeRMS(samples []float64, window int) float64 {
	n := min(window, len(samples))
	if n <= 0 {
		return 0
	}
	var sum float64
	for _, v := range samples[:n] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// ComputeTopMeanAbs returns the mean of the topN largest absolute values.
func ComputeTopMeanAbs(samples []float64, topN int) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := min(max(topN, 1), len(samples))

	abs := make([]float64, len(samples))
	for i, v := range samples {
		abs[i] = math.Abs(v)
	}
	slices.SortFunc(abs, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})

	var sum float64
	for _, v := range abs[:n] {
		sum += v
	}
	return sum / float64(n)
}

// ComputeMedianFreqNormalized returns the bin below which half of the
// spectral power of the newest min(window, len) samples lies, as a
// fraction of the Nyquist bin.
//
// The spectrum is a direct DFT, O(window^2). Only use it with small windows.
func ComputeMedianFreqNormalized(samples []float64, window int) float64 {
	n := min(window, len(samples))
	if n <= 2 {
		return config.NeutralMedianFreq
	}

	// oldest -> newest
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = samples[n-1-i]
	}

	power := PowerSpectrum(x)

	var total float64
	for _, p := range power {
		total += p
	}
	if total <= 0 {
		return config.NeutralMedianFreq
	}

	half := n / 2
	target := total / 2
	var cum float64
	medianBin := 0
	for k, p := range power {
		cum += p
		if cum >= target {
			medianBin = k
			break
		}
	}
	return float64(medianBin) / float64(half)
}

// PowerSpectrum returns |X[k]|^2 for k = 0..len(x)/2 of the one-sided DFT
// of x, which must be in chronological order.
func PowerSpectrum(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	half := n / 2
	power := make([]float64, half+1)
	for k := 0; k <= half; k++ {
		var re, im float64
		for i, v := range x {
			angle := 2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += v * math.Cos(angle)
			im -= v * math.Sin(angle)
		}
		power[k] = re*re + im*im
	}
	return power
}
