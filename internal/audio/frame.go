// Package audio holds the capture-side primitives: frames, level metering and the capture buffer.
package audio

import (
	"math"
	"time"
)

// SilenceThreshold is the peak amplitude at or below which a frame is treated as silence.
const SilenceThreshold float32 = 0.001

// Frame is one fixed-duration block of interleaved samples.
type Frame struct {
	Samples    []float32
	Channels   int
	SampleRate int
	CapturedAt time.Time
}

// NewFrame wraps captured samples. A channel count below one is treated as mono.
func NewFrame(samples []float32, channels, sampleRate int) Frame {
	if channels < 1 {
		channels = 1
	}
	return Frame{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
		CapturedAt: time.Now(),
	}
}

// Peak returns the frame's peak absolute amplitude.
func (f Frame) Peak() float32 {
	return Peak(f.Samples)
}

// IsSilent reports whether the frame falls under the silence gate.
func (f Frame) IsSilent() bool {
	return f.Peak() <= SilenceThreshold
}

// Duration is the wall-clock length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := len(f.Samples) / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Peak returns the peak absolute amplitude of samples, clamped to [0, 1].
func Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak > 1 || math.IsInf(float64(peak), 1) {
		return 1
	}
	return peak
}

// Downmix averages interleaved channels into a mono signal.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		mono := make([]float32, len(samples))
		copy(mono, samples)
		return mono
	}

	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += samples[base+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// Normalize divides samples in place by their own peak absolute value.
// It returns false and leaves samples untouched when the signal is silent.
func Normalize(samples []float32) bool {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak <= SilenceThreshold {
		return false
	}
	for i := range samples {
		samples[i] /= peak
	}
	return true
}
