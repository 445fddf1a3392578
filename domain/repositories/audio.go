package repositories

import (
	"context"

	"github.com/satriahrh/voxlate/domain/entities"
)

// AudioSource abstracts an audio capture backend
type AudioSource interface {
	ListDevices(ctx context.Context) ([]entities.AudioDevice, error)
	// OpenInputStream opens a capture stream that calls onFrame once per block.
	// The stream is not running until Start is called.
	OpenInputStream(config StreamConfig, onFrame FrameHandler) (AudioStream, error)
}

// StreamConfig describes the block layout requested from the device
type StreamConfig struct {
	DeviceIndex int
	Channels    int
	SampleRate  int
	BlockSize   int
}

// FrameHandler receives one block of interleaved samples, BlockSize*Channels long.
// It runs on the capture thread and must not block; the slice is owned by the handler.
type FrameHandler func(samples []float32)

// AudioStream is an opened capture stream
type AudioStream interface {
	Start() error
	Stop() error
	Close() error
}
