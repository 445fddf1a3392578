package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxlate/domain/entities"
	"github.com/satriahrh/voxlate/domain/repositories"
	"github.com/satriahrh/voxlate/internal/audio"
)

// ErrSessionDisposed is returned when starting a session after Dispose.
var ErrSessionDisposed = errors.New("session disposed")

// Deps are the collaborators a session runs with.
type Deps struct {
	Source         repositories.AudioSource
	Transcriber    *TranscriptionStage
	Translator     *TranslationStage
	BufferCapacity int
	PollInterval   time.Duration
	Logger         *zap.Logger
}

// Session owns one capture stream, its buffer and its processing loop.
type Session struct {
	id        string
	config    entities.SessionConfig
	startedAt time.Time
	source    repositories.AudioSource
	buffer    *audio.Buffer
	meter     audio.LevelMeter
	loop      *Loop
	logger    *zap.Logger

	paused atomic.Bool

	mu       sync.Mutex
	stream   repositories.AudioStream
	disposed bool
}

// NewSession creates a stopped session. config is expected to be defaulted and valid.
func NewSession(id string, config entities.SessionConfig, deps Deps) *Session {
	logger := deps.Logger.With(zap.String("session_id", id))
	buffer := audio.NewBuffer(deps.BufferCapacity)

	return &Session{
		id:     id,
		config: config,
		source: deps.Source,
		buffer: buffer,
		loop:   NewLoop(buffer, deps.Transcriber, deps.Translator, config, deps.PollInterval, logger),
		logger: logger,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Config returns the configuration the session was created with.
func (s *Session) Config() entities.SessionConfig {
	return s.config
}

// StartedAt returns when the session last started capturing.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Start opens the input device and starts the processing loop. Starting a running
// session does nothing. A device failure leaves the session stopped.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrSessionDisposed
	}
	if s.loop.IsRunning() {
		return nil
	}

	stream, err := s.source.OpenInputStream(repositories.StreamConfig{
		DeviceIndex: s.config.DeviceIndex,
		Channels:    s.config.Channels,
		SampleRate:  s.config.SampleRate,
		BlockSize:   s.config.BlockSize(),
	}, s.onFrame)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	s.loop.Start(ctx)

	if err := stream.Start(); err != nil {
		s.loop.Stop()
		if closeErr := stream.Close(); closeErr != nil {
			s.logger.Warn("Failed to close input stream", zap.Error(closeErr))
		}
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	s.stream = stream
	s.startedAt = time.Now()
	s.paused.Store(false)

	s.logger.Info("Session started",
		zap.Int("device_index", s.config.DeviceIndex),
		zap.Int("block_size", s.config.BlockSize()))
	return nil
}

// Stop ends the processing loop, waits for it and then releases the device.
// Stopping a stopped session does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.loop.Stop()

	if s.stream == nil {
		return
	}
	if err := s.stream.Stop(); err != nil {
		s.logger.Warn("Failed to stop input stream", zap.Error(err))
	}
	if err := s.stream.Close(); err != nil {
		s.logger.Warn("Failed to close input stream", zap.Error(err))
	}
	s.stream = nil

	s.logger.Info("Session stopped",
		zap.Uint64("dropped_frames", s.buffer.Dropped()),
		zap.Int("pending_frames", s.buffer.Len()))
}

// Dispose stops the session and releases its buffer. The session cannot be restarted.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.buffer.Clear()
	s.disposed = true
}

// TogglePause flips whether captured frames are forwarded and returns the new state.
func (s *Session) TogglePause() bool {
	for {
		current := s.paused.Load()
		if s.paused.CompareAndSwap(current, !current) {
			s.logger.Info("Session pause toggled", zap.Bool("paused", !current))
			return !current
		}
	}
}

// IsRunning reports whether the processing loop is running.
func (s *Session) IsRunning() bool {
	return s.loop.IsRunning()
}

// IsPaused reports whether captured frames are being discarded.
func (s *Session) IsPaused() bool {
	return s.paused.Load()
}

// Level returns the last measured input level and whether an utterance is in flight.
func (s *Session) Level() (float32, bool) {
	return s.meter.Level(), s.loop.IsProcessing()
}

// Snapshot returns the current state. History is a copy.
func (s *Session) Snapshot() entities.SessionState {
	return entities.SessionState{
		IsRunning:     s.loop.IsRunning(),
		IsProcessing:  s.loop.IsProcessing(),
		IsPaused:      s.paused.Load(),
		AudioLevel:    s.meter.Level(),
		Latest:        s.loop.Latest(),
		History:       s.loop.History(),
		DroppedFrames: s.buffer.Dropped(),
	}
}

// onFrame runs on the audio callback thread and must not block.
func (s *Session) onFrame(samples []float32) {
	frame := audio.NewFrame(samples, s.config.Channels, s.config.SampleRate)
	s.meter.Measure(frame)

	if s.paused.Load() || frame.IsSilent() {
		return
	}

	if s.buffer.Push(frame) {
		s.logger.Warn("Capture buffer full, dropped oldest frame",
			zap.Uint64("dropped_frames", s.buffer.Dropped()))
	}
}
