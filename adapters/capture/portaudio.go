package capture

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
)

// PortAudioSource opens capture streams through PortAudio
type PortAudioSource struct {
	logger *zap.Logger
}

// NewPortAudioSource initializes PortAudio. Call Close when done.
func NewPortAudioSource(logger *zap.Logger) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	return &PortAudioSource{logger: logger}, nil
}

// Close terminates PortAudio
func (p *PortAudioSource) Close() error {
	return portaudio.Terminate()
}

// ListDevices reports every device PortAudio knows, in host order
func (p *PortAudioSource) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing portaudio devices: %w", err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	result := make([]entities.AudioDevice, 0, len(devices))
	for i, dev := range devices {
		result = append(result, entities.AudioDevice{
			Index:             i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			IsDefault:         dev.Name == defaultName && dev.MaxInputChannels > 0,
		})
	}
	return result, nil
}

// OpenInputStream opens a callback stream delivering BlockSize frames per call.
// Devices with fewer channels than requested are widened by duplication.
func (p *PortAudioSource) OpenInputStream(config repositories.StreamConfig, handler repositories.FrameHandler) (repositories.AudioStream, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing portaudio devices: %w", err)
	}
	if config.DeviceIndex < 0 || config.DeviceIndex >= len(devices) {
		return nil, fmt.Errorf("%w: index %d", ErrDeviceNotFound, config.DeviceIndex)
	}

	dev := devices[config.DeviceIndex]
	if dev.MaxInputChannels < 1 {
		return nil, fmt.Errorf("%w: %s has no input channels", ErrDeviceNotFound, dev.Name)
	}

	channels := min(config.Channels, dev.MaxInputChannels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(config.SampleRate),
		FramesPerBuffer: config.BlockSize,
	}

	callback := func(in []float32) {
		// PortAudio reuses in after the callback returns
		samples := make([]float32, len(in))
		copy(samples, in)
		handler(expandChannels(samples, channels, config.Channels))
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("opening input stream on %s: %w", dev.Name, err)
	}

	p.logger.Info("Opened PortAudio input stream",
		zap.String("device", dev.Name),
		zap.Int("channels", channels),
		zap.Int("sample_rate", config.SampleRate),
		zap.Int("block_size", config.BlockSize))

	return &portAudioStream{stream: stream}, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
}

func (s *portAudioStream) Start() error {
	return s.stream.Start()
}

func (s *portAudioStream) Stop() error {
	return s.stream.Stop()
}

func (s *portAudioStream) Close() error {
	return s.stream.Close()
}
