package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
)

// MalgoSource opens capture devices through miniaudio
type MalgoSource struct {
	ctx    *malgo.AllocatedContext
	logger *zap.Logger
}

// NewMalgoSource initializes a miniaudio context. Call Close when done.
func NewMalgoSource(logger *zap.Logger) (*MalgoSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &MalgoSource{ctx: ctx, logger: logger}, nil
}

// Close releases the miniaudio context
func (m *MalgoSource) Close() error {
	if err := m.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	m.ctx.Free()
	return nil
}

// ListDevices reports capture devices. Output channels are not probed.
func (m *MalgoSource) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	infos, err := m.ctx.Context.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}

	devices := make([]entities.AudioDevice, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, entities.AudioDevice{
			Index:            i,
			Name:             info.Name(),
			MaxInputChannels: m.maxChannels(info),
			IsDefault:        info.IsDefault != 0,
		})
	}
	return devices, nil
}

func (m *MalgoSource) maxChannels(info malgo.DeviceInfo) int {
	full, err := m.ctx.Context.DeviceInfo(malgo.Capture, info.ID, malgo.Shared)
	if err != nil {
		return 2
	}
	channels := 0
	for _, format := range full.Formats {
		channels = max(channels, int(format.Channels))
	}
	if channels == 0 {
		// miniaudio reports 0 when any channel count is accepted
		return 2
	}
	return channels
}

// OpenInputStream opens a capture device and regroups its periods into BlockSize frames
func (m *MalgoSource) OpenInputStream(config repositories.StreamConfig, handler repositories.FrameHandler) (repositories.AudioStream, error) {
	infos, err := m.ctx.Context.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}
	if config.DeviceIndex < 0 || config.DeviceIndex >= len(infos) {
		return nil, fmt.Errorf("%w: index %d", ErrDeviceNotFound, config.DeviceIndex)
	}

	stream := &malgoStream{
		deviceID: infos[config.DeviceIndex].ID,
		channels: uint32(config.Channels),
		framer:   NewFramer(config.BlockSize*config.Channels, handler),
	}

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(config.Channels)
	deviceCfg.Capture.DeviceID = stream.deviceID.Pointer()
	deviceCfg.SampleRate = uint32(config.SampleRate)

	device, err := malgo.InitDevice(m.ctx.Context, deviceCfg, malgo.DeviceCallbacks{
		Data: stream.onData,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing capture device: %w", err)
	}
	stream.device = device

	m.logger.Info("Opened miniaudio input stream",
		zap.String("device", infos[config.DeviceIndex].Name()),
		zap.Int("channels", config.Channels),
		zap.Int("sample_rate", config.SampleRate),
		zap.Int("block_size", config.BlockSize))

	return stream, nil
}

type malgoStream struct {
	device   *malgo.Device
	deviceID malgo.DeviceID
	channels uint32

	mu     sync.Mutex
	framer *Framer
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("starting capture device: %w", err)
	}
	return nil
}

func (s *malgoStream) Stop() error {
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("stopping capture device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.device.Uninit()
	return nil
}

// onData is the malgo callback invoked when audio data is available
func (s *malgoStream) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*s.channels)

	s.mu.Lock()
	s.framer.Write(samples)
	s.mu.Unlock()
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
