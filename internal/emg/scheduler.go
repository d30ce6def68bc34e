package emg

import (
	"sync"
	"sync/atomic"
	"time"

	"emg-monitor.klederson.com/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the streaming state of a Scheduler.
type State int32

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

// Frame is a throttled display update: the latest reading plus a chart
// snapshot of the buffer (newest first). Samples must not be modified.
type Frame struct {
	Seq     uint64
	At      time.Time
	Reading Reading
	Samples []float64
}

// Observer receives scheduler events. Implementations must be cheap and
// safe for concurrent use; SampleIngested runs on the producer path.
type Observer interface {
	SampleIngested()
	SampleDiscarded()
	ComputeDropped()
	Computed(r Reading, took time.Duration)
	FramePublished()
	Calibrated(kind AnchorKind, value float64)
	StateChanged(state State)
}

type nopObserver struct{}

func (nopObserver) SampleIngested() {}
func (nopObserver) SampleDiscarded() {}
func (nopObserver) ComputeDropped() {}
func (nopObserver) Computed(Reading, time.Duration) {}
func (nopObserver) FramePublished() {}
func (nopObserver) Calibrated(AnchorKind, float64) {}
func (nopObserver) StateChanged(State) {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now for the display throttle.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the scheduler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l.With().Str("component", "scheduler").Logger() }
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithParams sets the initial params.
func WithParams(p config.Params) Option {
	return func(s *Scheduler) {
		p = p.Clamped()
		s.params.Store(&p)
	}
}

// WithCapacity overrides the buffer capacity.
func WithCapacity(n int) Option {
	return func(s *Scheduler) { s.buffer = NewSampleBuffer(n) }
}

type job struct {
	samples []float64
	compute bool
	refresh bool
	gen     uint64
}

type session struct {
	id   string
	jobs chan job
	quit chan struct{}
}

// Scheduler accepts samples, keeps the buffer, and runs the metric and
// fusion pass on a worker goroutine whenever the sample-count or display
// gate opens. Ingest never blocks on that work.
type Scheduler struct {
	buffer *SampleBuffer
	cal    *CalibrationStore
	params atomic.Pointer[config.Params]

	streaming atomic.Bool
	ctlMu     sync.Mutex // serialises Start/Stop/Reset bodies
	session   atomic.Pointer[session]
	gen       atomic.Uint64 // results from older generations are discarded
	workers   sync.WaitGroup

	counter     atomic.Uint32
	lastDisplay atomic.Int64 // unix nanos of the last claimed refresh

	latest  atomic.Pointer[Reading]
	frame   atomic.Pointer[Frame]
	seq     atomic.Uint64
	updates chan struct{}

	now      func() time.Time
	logger   zerolog.Logger
	observer Observer
}

// NewScheduler creates an idle scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		buffer:   NewSampleBuffer(config.BufferCapacity),
		cal:      NewCalibrationStore(),
		updates:  make(chan struct{}, 1),
		now:      time.Now,
		logger:   zerolog.Nop(),
		observer: nopObserver{},
	}
	p := config.DefaultParams()
	s.params.Store(&p)
	s.latest.Store(&Reading{})
	s.frame.Store(&Frame{})

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start moves to Streaming and resets the sample counter and display
// throttle. Calibration and buffered samples are kept. It reports whether
// the state changed.
func (s *Scheduler) Start() bool {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	if !s.streaming.CompareAndSwap(false, true) {
		return false
	}

	s.counter.Store(0)
	s.lastDisplay.Store(0)
	s.gen.Add(1)

	sess := &session{
		id:   uuid.NewString(),
		jobs: make(chan job, 1),
		quit: make(chan struct{}),
	}
	s.session.Store(sess)
	s.workers.Add(1)
	go s.work(sess)

	s.logger.Info().Str("session", sess.id).Msg("session started")
	s.observer.StateChanged(Streaming)
	return true
}

// Stop moves to Idle. An in-flight computation finishes but its result is
// not published. It reports whether the state changed.
func (s *Scheduler) Stop() bool {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	if !s.streaming.CompareAndSwap(true, false) {
		return false
	}
	s.gen.Add(1)
	if sess := s.session.Swap(nil); sess != nil {
		close(sess.quit)
		s.logger.Info().Str("session", sess.id).Msg("session stopped")
	}
	s.observer.StateChanged(Idle)
	return true
}

// Reset clears samples, calibration, and published values. The streaming
// state is left as is.
func (s *Scheduler) Reset() {
	s.ctlMu.Lock()
	defer s.ctlMu.Unlock()

	s.gen.Add(1)
	s.buffer.Clear()
	s.cal.Reset()
	s.counter.Store(0)
	s.lastDisplay.Store(0)
	s.latest.Store(&Reading{})
	s.frame.Store(&Frame{Seq: s.seq.Add(1), At: s.now()})
	s.notify()
	s.logger.Info().Msg("session reset")
}

// Close stops streaming and waits for workers to exit.
func (s *Scheduler) Close() {
	s.Stop()
	s.workers.Wait()
}

// State returns the current streaming state.
func (s *Scheduler) State() State {
	if s.streaming.Load() {
		return Streaming
	}
	return Idle
}

// SessionID returns the id of the running session, or "" when idle.
func (s *Scheduler) SessionID() string {
	if sess := s.session.Load(); sess != nil {
		return sess.id
	}
	return ""
}

// Ingest accepts one decoded sample. Samples arriving while Idle are
// dropped. A sample racing a concurrent Stop may still land in the buffer,
// as if it had arrived just before; its job belongs to the old generation
// and is never published.
func (s *Scheduler) Ingest(sample float64) {
	// loaded before the buffer is touched, so a Reset or Stop from here on
	// marks this sample's job stale
	gen := s.gen.Load()
	if !s.streaming.Load() {
		s.observer.SampleDiscarded()
		return
	}

	s.buffer.Append(sample)
	s.observer.SampleIngested()

	n := s.counter.Add(1)
	compute := n%config.MetricSampleSkip == 0
	refresh := s.claimRefresh()
	if !compute && !refresh {
		return
	}

	sess := s.session.Load()
	if sess == nil {
		return
	}
	s.dispatch(sess, job{
		samples: s.buffer.Snapshot(),
		compute: compute,
		refresh: refresh,
		gen:     gen,
	})
}

// IngestBatch ingests samples in order.
func (s *Scheduler) IngestBatch(samples []float64) {
	for _, v := range samples {
		s.Ingest(v)
	}
}

func (s *Scheduler) claimRefresh() bool {
	now := s.now().UnixNano()
	last := s.lastDisplay.Load()
	if last != 0 && now-last < int64(config.DisplayThrottle) {
		return false
	}
	return s.lastDisplay.CompareAndSwap(last, now)
}

// dispatch hands a job to the worker without blocking. A job still queued
// is replaced by the newer one, keeping both of their gates.
func (s *Scheduler) dispatch(sess *session, j job) {
	select {
	case sess.jobs <- j:
		return
	default:
	}

	select {
	case old := <-sess.jobs:
		j.compute = j.compute || old.compute
		j.refresh = j.refresh || old.refresh
		s.observer.ComputeDropped()
		s.logger.Debug().Msg("compute coalesced")
	default:
	}

	select {
	case sess.jobs <- j:
	default:
		s.observer.ComputeDropped()
		s.logger.Debug().Msg("compute dropped")
	}
}

func (s *Scheduler) work(sess *session) {
	defer s.workers.Done()
	for {
		select {
		case <-sess.quit:
			return
		case j := <-sess.jobs:
			s.process(j)
		}
	}
}

func (s *Scheduler) process(j job) {
	published := false
	if j.compute {
		start := time.Now()
		m := ComputeMetrics(j.samples)
		r := Fuse(m, s.cal.Snapshot(), s.Params())
		if !s.current(j.gen) {
			return
		}
		s.cal.UpdateObserved(m.RMS, m.MedianFreq)
		s.latest.Store(&r)
		s.observer.Computed(r, time.Since(start))
		published = true
	}

	if j.refresh {
		if !s.current(j.gen) {
			return
		}
		s.frame.Store(&Frame{
			Seq:     s.seq.Add(1),
			At:      s.now(),
			Reading: s.Latest(),
			Samples: j.samples,
		})
		s.observer.FramePublished()
		published = true
	}

	if published {
		s.notify()
	}
}

func (s *Scheduler) current(gen uint64) bool {
	return s.streaming.Load() && s.gen.Load() == gen
}

func (s *Scheduler) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Updates signals after new values are published. Signals coalesce, so a
// receiver should read Latest or Frame rather than count them.
func (s *Scheduler) Updates() <-chan struct{} {
	return s.updates
}

// Latest returns the most recent reading.
func (s *Scheduler) Latest() Reading {
	return *s.latest.Load()
}

// Frame returns the most recently published display frame.
func (s *Scheduler) Frame() Frame {
	return *s.frame.Load()
}

// Samples returns a copy of the buffer, newest first.
func (s *Scheduler) Samples() []float64 {
	return s.buffer.Snapshot()
}

// Len returns the number of buffered samples.
func (s *Scheduler) Len() int {
	return s.buffer.Len()
}

// Capacity returns the buffer capacity.
func (s *Scheduler) Capacity() int {
	return s.buffer.Cap()
}

// Calibration returns a copy of the calibration state.
func (s *Scheduler) Calibration() Calibration {
	return s.cal.Snapshot()
}

// Params returns the current params.
func (s *Scheduler) Params() config.Params {
	return *s.params.Load()
}

// SetParams replaces the params after clamping them to range.
func (s *Scheduler) SetParams(p config.Params) {
	p = p.Clamped()
	s.params.Store(&p)
	s.logger.Info().
		Float64("strength_index", p.StrengthIndex).
		Float64("fatigue_index", p.FatigueIndex).
		Float64("fi_sensitivity", p.FISensitivity).
		Float64("fl_sensitivity", p.FLSensitivity).
		Msg("params updated")
}

// UpdateParams applies fn to a copy of the current params and stores it.
func (s *Scheduler) UpdateParams(fn func(*config.Params)) config.Params {
	p := s.Params()
	fn(&p)
	s.SetParams(p)
	return s.Params()
}

// Calibrate records a calibration anchor from the current buffer.
func (s *Scheduler) Calibrate(kind AnchorKind) (float64, bool) {
	v, ok := s.cal.Record(kind, s.buffer.Snapshot())
	if !ok {
		s.logger.Warn().Str("anchor", string(kind)).Float64("value", v).Msg("calibration ignored")
		return v, false
	}
	s.logger.Info().Str("anchor", string(kind)).Float64("value", v).Msg("calibration recorded")
	s.observer.Calibrated(kind, v)
	return v, true
}

func (s *Scheduler) RecordBaselineRMS() (float64, bool) { return s.Calibrate(AnchorBaselineRMS) }
func (s *Scheduler) RecordMaxRMS() (float64, bool) { return s.Calibrate(AnchorMaxRMS) }
func (s *Scheduler) RecordBaselineMF() (float64, bool) { return s.Calibrate(AnchorBaselineMF) }
func (s *Scheduler) RecordMinMF() (float64, bool) { return s.Calibrate(AnchorMinMF) }
