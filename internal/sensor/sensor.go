package sensor

import (
	"context"
	"errors"
)

var (
	ErrDeviceNotFound   = errors.New("sensor: device not found")
	ErrNoCharacteristic = errors.New("sensor: notify characteristic not found")
	ErrAlreadyRunning   = errors.New("sensor: source already running")
)

// Sink receives decoded samples. emg.Scheduler satisfies it.
type Sink interface {
	Ingest(sample float64)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(float64)

func (f SinkFunc) Ingest(sample float64) { f(sample) }

// StatsReporter is implemented by sources that count what they deliver.
type StatsReporter interface {
	Stats() (packets, samples uint64)
}

// Source delivers samples to a Sink until stopped. Start returns once the
// source is delivering; delivery continues on a background goroutine.
type Source interface {
	Start(ctx context.Context, sink Sink) error
	Stop() error
}
