package stt

import "encoding/binary"

// toPCM16 converts float samples in [-1, 1] to 16-bit integer samples
func toPCM16(samples []float32) []int {
	pcm := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		pcm[i] = int(s * 32767)
	}
	return pcm
}

// toLinear16 converts float samples to little-endian LINEAR16 bytes
func toLinear16(samples []float32) []byte {
	pcm := toPCM16(samples)
	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(s)))
	}
	return data
}
