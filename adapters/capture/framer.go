// Package capture implements audio input sources: PortAudio and miniaudio devices,
// and a WAV file replayed in real time.
package capture

import "errors"

// ErrDeviceNotFound is returned when a device index does not name a capture device.
var ErrDeviceNotFound = errors.New("audio device not found")

// Framer accumulates variable-sized callback periods into fixed-size blocks.
// It is not safe for concurrent use; audio backends call it from one thread.
type Framer struct {
	size  int
	block []float32
	emit  func([]float32)
}

// NewFramer emits a fresh slice every time size samples have been written
func NewFramer(size int, emit func([]float32)) *Framer {
	if size < 1 {
		size = 1
	}
	return &Framer{
		size:  size,
		block: make([]float32, 0, size),
		emit:  emit,
	}
}

// Write appends samples, emitting each completed block
func (f *Framer) Write(samples []float32) {
	for len(samples) > 0 {
		n := min(f.size-len(f.block), len(samples))
		f.block = append(f.block, samples[:n]...)
		samples = samples[n:]

		if len(f.block) == f.size {
			f.emit(f.block)
			f.block = make([]float32, 0, f.size)
		}
	}
}

// Pending returns how many samples are waiting for a full block
func (f *Framer) Pending() int {
	return len(f.block)
}

// expandChannels duplicates each interleaved frame of from channels into to channels.
// Extra output channels repeat the last input channel.
func expandChannels(samples []float32, from, to int) []float32 {
	if from >= to || from < 1 {
		return samples
	}
	frames := len(samples) / from
	out := make([]float32, frames*to)
	for i := 0; i < frames; i++ {
		for c := 0; c < to; c++ {
			src := min(c, from-1)
			out[i*to+c] = samples[i*from+src]
		}
	}
	return out
}

// resample converts interleaved samples between rates by linear interpolation
func resample(samples []float32, channels, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || channels < 1 {
		return samples
	}

	inFrames := len(samples) / channels
	if inFrames == 0 {
		return nil
	}
	outFrames := int(int64(inFrames) * int64(toRate) / int64(fromRate))
	out := make([]float32, outFrames*channels)
	ratio := float64(fromRate) / float64(toRate)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		left := int(pos)
		right := min(left+1, inFrames-1)
		frac := float32(pos - float64(left))
		for c := 0; c < channels; c++ {
			a := samples[left*channels+c]
			b := samples[right*channels+c]
			out[i*channels+c] = a + (b-a)*frac
		}
	}
	return out
}
