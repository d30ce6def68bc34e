package sensor

import (
	"encoding/binary"

	"emg-monitor.klederson.com/internal/config"
)

// DecodeSamples converts a notification payload into normalised samples and
// appends them to dst.
//
// Payloads of two or more bytes are little-endian int16 samples scaled by
// 1/32768, a trailing odd byte is ignored. A single-byte payload is treated
// as an unsigned level and scaled by 1/255.
func DecodeSamples(dst []float64, buf []byte) []float64 {
	switch len(buf) {
	case 0:
		return dst
	case 1:
		return append(dst, float64(buf[0])/255)
	}

	for i := 0; i+1 < len(buf); i += 2 {
		v := int16(binary.LittleEndian.Uint16(buf[i:]))
		dst = append(dst, float64(v)/config.Int16FullScale)
	}
	return dst
}

// EncodeSamples is the inverse of DecodeSamples for multi-sample payloads.
// Values are clamped to the int16 range.
func EncodeSamples(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := s * config.Int16FullScale
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
