package config

import "time"

const (
	// Sample store
	BufferCapacity = 2000 // ~1s @2000Hz or 4s @500Hz

	// Scheduling
	MetricSampleSkip = 40                    // Recompute metrics every N samples
	DisplayThrottle  = 30 * time.Millisecond // Minimum interval between published frames (~33fps)

	// Metric windows
	RMSWindow         = 64  // Samples used by the periodic RMS
	MedianFreqWindow  = 128 // Samples used by the DFT median frequency
	CalibrationWindow = 128 // Samples used by calibration commands
	PeakTopN          = 8   // Largest |x| samples averaged for strength

	// Normalisation
	Epsilon            = 1e-6 // Floor for normalisation denominators
	NeutralMedianFreq  = 0.5  // Returned when the spectrum is undefined
	FallbackBaseRMS    = 0.5  // usedMax = (baselineRms ?? 0.5) * 2 when nothing is known
	InitialObservedMax = 0.0
	InitialObservedMin = 1.0

	// Sensor payloads
	Int16FullScale   = 32768.0
	DiagnosticEvery  = 50 // Log packet timing every N packets
	DemoSampleRateHz = 2000
	DemoPacketSize   = 20

	// Discovery
	ScanTimeout    = 10 * time.Second // Default duration of a discovery scan
	ConnectTimeout = 15 * time.Second // Give up finding the sensor after this long
	SmoothingAlpha = 0.3              // EMA smoothing factor for scan RSSI (30% new, 70% old)

	// Display
	TargetFPS     = 30
	TrendCapacity = 120 // Fatigue readings kept for the trend sparkline

	// App
	AppName    = "EMG-MONITOR"
	AppVersion = "1.0"
)
