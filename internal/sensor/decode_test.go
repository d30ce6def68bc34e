package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSamples(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want []float64
	}{
		{"Empty", nil, nil},
		{"Single byte level", []byte{0xFF}, []float64{1}},
		{"Single byte zero", []byte{0x00}, []float64{0}},
		{"Int16 full scale negative", []byte{0x00, 0x80}, []float64{-1}},
		{"Int16 half scale", []byte{0x00, 0x40}, []float64{0.5}},
		{"Little endian order", []byte{0x00, 0x40, 0x00, 0xC0}, []float64{0.5, -0.5}},
		{"Trailing byte ignored", []byte{0x00, 0x40, 0x7F}, []float64{0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeSamples(nil, tt.buf))
		})
	}
}

func TestDecodeSamplesAppends(t *testing.T) {
	dst := []float64{0.25}
	dst = DecodeSamples(dst, []byte{0x00, 0x40})
	assert.Equal(t, []float64{0.25, 0.5}, dst)
}

func TestEncodeSamplesRoundTrip(t *testing.T) {
	in := []float64{0, 0.5, -0.5, -1, 0.25}
	assert.Equal(t, in, DecodeSamples(nil, EncodeSamples(in)))

	// out of range values saturate
	got := DecodeSamples(nil, EncodeSamples([]float64{2, -3}))
	assert.InDelta(t, 32767.0/32768, got[0], 1e-12)
	assert.Equal(t, -1.0, got[1])
}
