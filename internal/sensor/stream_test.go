package sensor

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectSink struct {
	mu      sync.Mutex
	samples []float64
}

func (c *collectSink) Ingest(v float64) {
	c.mu.Lock()
	c.samples = append(c.samples, v)
	c.mu.Unlock()
}

func (c *collectSink) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func (c *collectSink) Samples() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.samples...)
}

func TestPacketStreamForwardsInOrder(t *testing.T) {
	sink := &collectSink{}
	p := newPacketStream(sink, zerolog.Nop())

	p.handle([]byte{0x00, 0x40, 0x00, 0xC0})
	p.handle([]byte{0xFF})
	p.handle(nil)

	assert.Equal(t, []float64{0.5, -0.5, 1}, sink.Samples())
	packets, samples := p.Counts()
	assert.Equal(t, uint64(3), packets)
	assert.Equal(t, uint64(3), samples)
}

func TestPacketStreamDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	p := newPacketStream(SinkFunc(func(float64) {}), logger)

	now := time.Unix(100, 0)
	p.now = func() time.Time { return now }

	for i := 0; i < 49; i++ {
		p.handle([]byte{0, 0})
		now = now.Add(10 * time.Millisecond)
	}
	assert.Empty(t, buf.String())

	p.handle([]byte{0, 0, 0, 0})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"packets":50`)
	assert.Contains(t, lines[0], `"size":2`)
	assert.Contains(t, lines[0], `"delta":10`)

	for i := 0; i < 50; i++ {
		p.handle([]byte{0, 0})
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "packet diagnostics"))
}
