package sensor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"emg-monitor.klederson.com/internal/config"
	"github.com/rs/zerolog"
)

// Demo contraction cycle.
const (
	demoRestSec        = 2.0
	demoContractionSec = 3.0
	demoRestLevel      = 0.03
	demoPeakLevel      = 0.6
	demoCarrierHz      = 180.0 // Fresh muscle dominant frequency
	demoFatigueSec     = 90.0  // Contraction time until the carrier halves

	maxCatchUp = 10 // Packets emitted per tick at most
)

// emgGenerator synthesises surface EMG: band-limited noise whose envelope
// follows contraction bursts and whose dominant frequency falls with
// accumulated contraction time.
type emgGenerator struct {
	rate       float64
	rng        *rand.Rand
	t          float64
	contracted float64 // seconds spent contracting
	phases     [3]float64
}

func newEMGGenerator(rate int, seed int64) *emgGenerator {
	g := &emgGenerator{
		rate: float64(rate),
		rng:  rand.New(rand.NewSource(seed)),
	}
	for i := range g.phases {
		g.phases[i] = g.rng.Float64() * 2 * math.Pi
	}
	return g
}

// envelope returns the amplitude at time t and whether the muscle is
// contracting.
func (g *emgGenerator) envelope(t float64) (float64, bool) {
	cycle := demoRestSec + demoContractionSec
	pos := math.Mod(t, cycle)
	if pos < demoRestSec {
		return demoRestLevel, false
	}
	// smooth ramp in and out of each burst
	x := (pos - demoRestSec) / demoContractionSec
	return demoRestLevel + (demoPeakLevel-demoRestLevel)*math.Sin(math.Pi*x), true
}

// carrier returns the current dominant frequency in Hz.
func (g *emgGenerator) carrier() float64 {
	f := demoCarrierHz / (1 + g.contracted/demoFatigueSec)
	if nyq := g.rate / 2; f > 0.8*nyq {
		f = 0.8 * nyq
	}
	return f
}

func (g *emgGenerator) next() float64 {
	dt := 1 / g.rate
	amp, active := g.envelope(g.t)
	if active {
		g.contracted += dt
	}

	f := g.carrier()
	var v float64
	for i, mult := range [3]float64{0.6, 1, 1.5} {
		g.phases[i] += 2 * math.Pi * f * mult * dt
		v += math.Sin(g.phases[i]) / 3
	}
	v += (g.rng.Float64() - 0.5) * 0.5
	g.t += dt

	v *= amp
	return math.Max(-1, math.Min(1, v))
}

// packet returns n samples encoded as an int16 notification payload.
func (g *emgGenerator) packet(n int) []byte {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = g.next()
	}
	return EncodeSamples(samples)
}

// DemoSource generates synthetic EMG for demo mode. Packets are encoded and
// decoded the same way sensor notifications are.
type DemoSource struct {
	rate       int
	packetSize int
	seed       int64
	logger     zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stream  *packetStream
	running bool
}

// DemoOption configures a DemoSource.
type DemoOption func(*DemoSource)

// WithRate sets the sample rate in Hz.
func WithRate(hz int) DemoOption {
	return func(d *DemoSource) {
		if hz > 0 {
			d.rate = hz
		}
	}
}

// WithPacketSize sets the number of samples per packet.
func WithPacketSize(n int) DemoOption {
	return func(d *DemoSource) {
		if n > 0 {
			d.packetSize = n
		}
	}
}

// WithSeed fixes the noise seed.
func WithSeed(seed int64) DemoOption {
	return func(d *DemoSource) { d.seed = seed }
}

// WithDemoLogger sets the source logger.
func WithDemoLogger(l zerolog.Logger) DemoOption {
	return func(d *DemoSource) { d.logger = l.With().Str("component", "demo").Logger() }
}

// NewDemoSource creates a demo source at the default rate.
func NewDemoSource(opts ...DemoOption) *DemoSource {
	d := &DemoSource{
		rate:       config.DemoSampleRateHz,
		packetSize: config.DemoPacketSize,
		seed:       time.Now().UnixNano(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Rate returns the configured sample rate.
func (d *DemoSource) Rate() int {
	return d.rate
}

// Start begins emitting packets to sink.
func (d *DemoSource) Start(ctx context.Context, sink Sink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.stream = newPacketStream(sink, d.logger)
	d.running = true

	gen := newEMGGenerator(d.rate, d.seed)
	go d.loop(ctx, gen, d.stream, d.done)

	d.logger.Info().Int("rate", d.rate).Int("packet", d.packetSize).Msg("demo source started")
	return nil
}

func (d *DemoSource) loop(ctx context.Context, gen *emgGenerator, stream *packetStream, done chan struct{}) {
	defer close(done)

	interval := time.Duration(float64(time.Second) * float64(d.packetSize) / float64(d.rate))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	var sent int64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// catch up after scheduler hiccups so the delivered rate holds
			due := int64(now.Sub(start) / interval)
			if due-sent > maxCatchUp {
				sent = due - maxCatchUp
			}
			for ; sent < due; sent++ {
				stream.handle(gen.packet(d.packetSize))
			}
		}
	}
}

// Stats returns packet and sample counts for the current or last run.
func (d *DemoSource) Stats() (packets, samples uint64) {
	d.mu.Lock()
	stream := d.stream
	d.mu.Unlock()
	if stream == nil {
		return 0, 0
	}
	return stream.Counts()
}

// Stop halts the generator and waits for the loop to exit.
func (d *DemoSource) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
	d.logger.Info().Msg("demo source stopped")
	return nil
}
