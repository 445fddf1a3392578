package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
)

// WAVFileConfig configures the WAV replay source
type WAVFileConfig struct {
	Path string
	// Loop restarts the file when it ends
	Loop bool
	// Speed scales the replay rate; 1 is real time
	Speed float64
}

// WAVFileSource replays a WAV file as if it were a capture device
type WAVFileSource struct {
	config     WAVFileConfig
	samples    []float32
	channels   int
	sampleRate int
	logger     *zap.Logger
}

// NewWAVFileSource decodes the whole file up front
func NewWAVFileSource(config WAVFileConfig, logger *zap.Logger) (*WAVFileSource, error) {
	f, err := os.Open(config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", config.Path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode WAV: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	// Convert int samples to float32 normalized to [-1.0, 1.0]
	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / scale
	}

	if config.Speed <= 0 {
		config.Speed = 1
	}

	logger.Info("Loaded WAV replay source",
		zap.String("path", config.Path),
		zap.Int("channels", int(dec.NumChans)),
		zap.Int("sample_rate", int(dec.SampleRate)),
		zap.Int("samples", len(samples)))

	return &WAVFileSource{
		config:     config,
		samples:    samples,
		channels:   int(dec.NumChans),
		sampleRate: int(dec.SampleRate),
		logger:     logger,
	}, nil
}

// ListDevices reports the file as a single input device
func (w *WAVFileSource) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	return []entities.AudioDevice{{
		Index:            0,
		Name:             "WAV file: " + filepath.Base(w.config.Path),
		MaxInputChannels: w.channels,
		IsDefault:        true,
	}}, nil
}

// OpenInputStream prepares a replay converted to the requested rate and channel count
func (w *WAVFileSource) OpenInputStream(config repositories.StreamConfig, handler repositories.FrameHandler) (repositories.AudioStream, error) {
	if config.DeviceIndex != 0 {
		return nil, fmt.Errorf("%w: index %d", ErrDeviceNotFound, config.DeviceIndex)
	}

	samples := w.samples
	channels := w.channels
	if channels > config.Channels {
		samples = keepChannels(samples, channels, config.Channels)
		channels = config.Channels
	}
	samples = resample(samples, channels, w.sampleRate, config.SampleRate)
	samples = expandChannels(samples, channels, config.Channels)

	blockSamples := config.BlockSize * config.Channels
	interval := time.Duration(float64(time.Second) * float64(config.BlockSize) / float64(config.SampleRate) / w.config.Speed)
	interval = max(interval, time.Microsecond)

	return &wavReplayStream{
		samples:  samples,
		block:    blockSamples,
		interval: interval,
		loop:     w.config.Loop,
		handler:  handler,
		logger:   w.logger,
	}, nil
}

// keepChannels drops interleaved channels beyond to
func keepChannels(samples []float32, from, to int) []float32 {
	frames := len(samples) / from
	out := make([]float32, frames*to)
	for i := 0; i < frames; i++ {
		copy(out[i*to:(i+1)*to], samples[i*from:i*from+to])
	}
	return out
}

type wavReplayStream struct {
	samples  []float32
	block    int
	interval time.Duration
	loop     bool
	handler  repositories.FrameHandler
	logger   *zap.Logger

	mu       sync.Mutex
	position int
	stopChan chan struct{}
	done     chan struct{}
}

func (s *wavReplayStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != nil {
		return nil
	}
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopChan, s.done)
	return nil
}

func (s *wavReplayStream) run(stopChan, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			block, ok := s.next()
			if !ok {
				s.logger.Info("WAV replay finished")
				return
			}
			s.handler(block)
		}
	}
}

// next returns the next full block, padding the tail with silence
func (s *wavReplayStream) next() ([]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position >= len(s.samples) {
		if !s.loop || len(s.samples) == 0 {
			return nil, false
		}
		s.position = 0
	}

	block := make([]float32, s.block)
	n := copy(block, s.samples[s.position:])
	s.position += n
	return block, true
}

func (s *wavReplayStream) Stop() error {
	s.mu.Lock()
	stopChan, done := s.stopChan, s.done
	s.stopChan = nil
	s.mu.Unlock()

	if stopChan == nil {
		return nil
	}
	close(stopChan)
	<-done
	return nil
}

func (s *wavReplayStream) Close() error {
	return s.Stop()
}
