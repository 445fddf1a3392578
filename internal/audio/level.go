package audio

import (
	"math"
	"sync/atomic"
)

// LevelMeter keeps the most recent peak level for UI polling. Last write wins.
type LevelMeter struct {
	bits atomic.Uint32
}

// Measure records and returns the frame's peak level.
func (m *LevelMeter) Measure(frame Frame) float32 {
	level := frame.Peak()
	m.bits.Store(math.Float32bits(level))
	return level
}

// Level returns the last measured level.
func (m *LevelMeter) Level() float32 {
	return math.Float32frombits(m.bits.Load())
}

// Reset sets the level back to zero.
func (m *LevelMeter) Reset() {
	m.bits.Store(0)
}
