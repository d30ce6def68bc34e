package emg

import "sync"

// SampleBuffer is a bounded, thread-safe ring of recent samples. Once full,
// each Append silently overwrites the oldest sample.
type SampleBuffer struct {
	mu    sync.RWMutex
	buf   []float64
	pos   int // next write index
	count int
}

// NewSampleBuffer creates a buffer holding at most capacity samples.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &SampleBuffer{
		buf: make([]float64, capacity),
	}
}

// Append stores a sample as the newest element.
func (b *SampleBuffer) Append(sample float64) {
	b.mu.Lock()
	b.buf[b.pos] = sample
	b.pos = (b.pos + 1) % len(b.buf)
	if b.count < len(b.buf) {
		b.count++
	}
	b.mu.Unlock()
}

// Snapshot returns a copy of the stored samples, newest first.
func (b *SampleBuffer) Snapshot() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}
	out := make([]float64, b.count)
	idx := b.pos
	for i := range out {
		idx--
		if idx < 0 {
			idx = len(b.buf) - 1
		}
		out[i] = b.buf[idx]
	}
	return out
}

// Len returns the number of stored samples.
func (b *SampleBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *SampleBuffer) Cap() int {
	return len(b.buf)
}

// Clear drops every stored sample.
func (b *SampleBuffer) Clear() {
	b.mu.Lock()
	b.pos = 0
	b.count = 0
	b.mu.Unlock()
}
