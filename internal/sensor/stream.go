package sensor

import (
	"sync"
	"time"

	"emg-monitor.klederson.com/internal/config"
	"github.com/rs/zerolog"
)

// packetStream decodes payloads into a sink and keeps arrival diagnostics.
// Notification callbacks may arrive on any goroutine.
type packetStream struct {
	sink   Sink
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	packets     uint64
	samples     uint64
	lastArrival time.Time
	scratch     []float64
}

func newPacketStream(sink Sink, logger zerolog.Logger) *packetStream {
	return &packetStream{
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// handle decodes one payload and forwards its samples in order.
func (p *packetStream) handle(buf []byte) {
	p.mu.Lock()
	p.scratch = DecodeSamples(p.scratch[:0], buf)
	p.packets++
	p.samples += uint64(len(p.scratch))

	now := p.now()
	if p.packets%config.DiagnosticEvery == 0 {
		delta := time.Duration(-1)
		if !p.lastArrival.IsZero() {
			delta = now.Sub(p.lastArrival)
		}
		p.logger.Debug().
			Uint64("packets", p.packets).
			Dur("delta", delta).
			Int("size", len(p.scratch)).
			Msg("packet diagnostics")
	}
	p.lastArrival = now

	// samples are forwarded under the lock so concurrent callbacks cannot interleave
	for _, s := range p.scratch {
		p.sink.Ingest(s)
	}
	p.mu.Unlock()
}

// Counts returns the number of packets and samples handled so far.
func (p *packetStream) Counts() (packets, samples uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.packets, p.samples
}
